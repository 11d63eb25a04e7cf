package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.Login"

	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	token, user, err := s.service.Login(r.Context(), req.WalletAddress, req.Signature)
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: newUserView(user)})
}

type userRequest struct {
	WalletAddress string `json:"walletAddress"`
	DisplayName   string `json:"displayName"`
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.CreateUser"

	var req userRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := s.service.CreateUser(r.Context(), req.WalletAddress, req.DisplayName)
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserView(user))
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.ListUsers"

	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserPreviewViews(users))
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.GetUser"

	user, err := s.service.GetUser(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.UpdateUser"

	var req userRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := s.service.UpdateUser(r.Context(), requester(r), chi.URLParam(r, "wallet"), req.DisplayName)
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.DeleteUser"

	if err := s.service.DeleteUser(r.Context(), requester(r), chi.URLParam(r, "wallet")); err != nil {
		fail(w, r, op, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListUserChannels(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.ListUserChannels"

	channels, err := s.service.ListUserChannels(r.Context(), requester(r))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newChannelPreviewViews(channels))
}
