package http

import (
	"context"
	"net/http"
	"strings"

	"quizrank-service/internal/config"
	"quizrank-service/internal/domain"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUsername = "X-Username"
)

type userKey struct{}

// Identity reads the caller set by the upstream auth gateway. Requests without
// a user id are rejected.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			config.JSON(w, http.StatusUnauthorized, errorResponse{Error: "missing user identity"})
			return
		}
		user := domain.User{ID: userID, Username: strings.TrimSpace(r.Header.Get(HeaderUsername))}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(ctx context.Context) domain.User {
	user, _ := ctx.Value(userKey{}).(domain.User)
	return user
}
