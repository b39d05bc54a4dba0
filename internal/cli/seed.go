package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"quizrank-service/internal/config"
	"quizrank-service/internal/domain"
)

type questionFile struct {
	Questions []domain.Question `yaml:"questions"`
}

// NewSeedCmd loads a YAML question bank into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <questions.yaml>",
		Short: "Import questions from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, args[0])
		},
	}
}

func runSeed(ctx context.Context, configPath, file string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == config.DriverMemory {
		return fmt.Errorf("seed needs a persistent store driver, got %q", cfg.Store.Driver)
	}
	log := config.NewLogger(cfg)

	questions, err := loadQuestions(file)
	if err != nil {
		return err
	}

	if cfg.Store.Driver == config.DriverPostgres {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	saved, err := b.writer.SaveQuestions(ctx, questions)
	if err != nil {
		return err
	}
	if b.options != nil {
		for _, q := range saved {
			if err := b.options.Forget(ctx, q.ID); err != nil {
				log.WithError(err).WithField("question_id", q.ID).Warn("drop cached options")
			}
		}
	}
	log.WithField("count", len(saved)).Info("questions imported")
	return nil
}

func loadQuestions(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file questionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, q := range file.Questions {
		if q.Subject == "" || q.Title == "" {
			return nil, fmt.Errorf("question %d: subject and title are required", i+1)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("question %d: no options", i+1)
		}
	}
	return file.Questions, nil
}
