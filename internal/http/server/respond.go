package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AlexMickh/exoterra-chat/internal/http/middleware"
	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/service"
	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail writes err as a JSON error. Service errors keep their message, any
// other error is logged and hidden behind a 500.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()

	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logger.GetFromCtx(ctx).Error(ctx, "request failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := statusOf(err)
	if status == http.StatusServiceUnavailable {
		logger.GetFromCtx(ctx).Warn(ctx, "dependency unavailable", zap.String("op", op), zap.Error(err))
	}

	writeError(w, status, svcErr.Msg)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst and answers 400 itself when it cannot.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is empty")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// requester is always set behind middleware.Auth.
func requester(r *http.Request) models.User {
	user, _ := middleware.UserFromCtx(r.Context())
	return user
}
