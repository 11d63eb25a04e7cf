package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/AlexMickh/exoterra-chat/internal/service"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

type createMessageRequest struct {
	ChannelId string `json:"channelId"`
	Content   string `json:"content"`
	Image     string `json:"image"`
}

func (s *Server) CreateMessage(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.CreateMessage"

	var req createMessageRequest
	if !decode(w, r, &req) {
		return
	}

	msg, err := s.service.CreateMessage(r.Context(), requester(r), req.ChannelId, req.Content, req.Image)
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusCreated, newMessageView(msg))
}

func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.ListMessages"

	page, err := intQuery(r, "page", defaultPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a positive number")
		return
	}
	pageSize, err := intQuery(r, "pageSize", defaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "pageSize must be a positive number")
		return
	}

	msgs, err := s.service.ListMessages(r.Context(), requester(r), chi.URLParam(r, "id"), page, pageSize)
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newMessageViews(msgs))
}

func (s *Server) GetMessage(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.GetMessage"

	msg, err := s.service.GetMessage(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newMessageView(msg))
}

func (s *Server) RecallMessage(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.RecallMessage"

	if err := s.service.RecallMessage(r.Context(), requester(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, op, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type uploadImageResponse struct {
	Key string `json:"key"`
	Url string `json:"url"`
}

// UploadImage takes the image from the "image" field of a multipart form.
func (s *Server) UploadImage(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.UploadImage"

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageSize+maxBodySize)

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "image form field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	key, url, err := s.service.UploadImage(r.Context(), requester(r), data, header.Header.Get("Content-Type"))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadImageResponse{Key: key, Url: url})
}

// intQuery reads a query parameter, returning def when it is absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
