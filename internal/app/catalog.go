package app

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quizrank-service/internal/domain"
)

// CatalogService hands out questions for a subject in random order.
// Option order is shuffled for presentation only; scoring never depends on it.
type CatalogService struct {
	catalog QuestionCatalog

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalogService(catalog QuestionCatalog) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Random returns up to limit questions of subject, skipping excluded ids.
// A limit of zero or less returns every remaining question.
func (c *CatalogService) Random(ctx context.Context, subject string, limit int, exclude []string) ([]domain.Question, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, domain.ErrMissingParameter
	}
	questions, err := c.catalog.ListQuestions(ctx, subject)
	if err != nil {
		return nil, storeErr("list questions", err)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	// the catalog may hand out cached slices; copy before shuffling
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := skip[q.ID]; ok {
			continue
		}
		q.Options = append([]domain.Option(nil), q.Options...)
		out = append(out, q)
	}

	c.mu.Lock()
	c.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	for i := range out {
		opts := out[i].Options
		c.rnd.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
	}
	c.mu.Unlock()

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
