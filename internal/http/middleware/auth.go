package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/service"
	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"go.uber.org/zap"
)

type contextKey string

const userKey contextKey = "user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// Auth resolves the bearer token of every request to a user and rejects the
// request with 401 when it cannot.
func Auth(auth Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.Auth"

			token, err := bearerToken(r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				var svcErr *service.Error
				if errors.As(err, &svcErr) && errors.Is(err, service.ErrUnauthenticated) {
					unauthorized(w, svcErr.Msg)
					return
				}

				ctx := r.Context()
				logger.GetFromCtx(ctx).Error(ctx, "failed to authenticate",
					zap.String("op", op),
					zap.Error(err),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = logger.GetFromCtx(ctx).With(ctx, zap.String("user_id", user.ID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromCtx returns the user Auth stored in ctx.
func UserFromCtx(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

// WithUser puts user into ctx the way Auth does.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	typ, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(typ, "Bearer") {
		return "", errors.New("wrong token type, need Bearer")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token is empty")
	}

	return token, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
