package server

import (
	"net/http"

	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/service"
	"github.com/go-chi/chi/v5"
)

type createChannelRequest struct {
	Name         string             `json:"name"`
	Kind         models.ChannelKind `json:"kind"`
	VoiceEnabled bool               `json:"voiceEnabled"`
	Owner        string             `json:"owner"`
	// nil when the field is absent or null.
	Members         []string `json:"members"`
	ContractAddress string   `json:"contractAddress"`
}

func (s *Server) CreateChannel(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.CreateChannel"

	var req createChannelRequest
	if !decode(w, r, &req) {
		return
	}

	channel, err := s.service.CreateChannel(r.Context(), requester(r), service.CreateChannelRequest{
		Name:            req.Name,
		Kind:            req.Kind,
		VoiceEnabled:    req.VoiceEnabled,
		Owner:           req.Owner,
		Members:         req.Members,
		ContractAddress: req.ContractAddress,
	})
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusCreated, newChannelView(channel))
}

func (s *Server) ListChannels(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.ListChannels"

	channels, err := s.service.ListChannels(r.Context())
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newChannelPreviewViews(channels))
}

func (s *Server) GetChannel(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.GetChannel"

	detail, err := s.service.GetChannel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newChannelDetailView(detail))
}

type updateChannelRequest struct {
	Name string `json:"name"`
}

func (s *Server) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.UpdateChannel"

	var req updateChannelRequest
	if !decode(w, r, &req) {
		return
	}

	channel, err := s.service.UpdateChannel(r.Context(), requester(r), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newChannelView(channel))
}

func (s *Server) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.DeleteChannel"

	if err := s.service.DeleteChannel(r.Context(), requester(r), chi.URLParam(r, "id")); err != nil {
		fail(w, r, op, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) JoinChannel(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.JoinChannel"

	channel, err := s.service.JoinChannel(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newChannelView(channel))
}

func (s *Server) MuteChannel(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.MuteChannel"

	user, err := s.service.MuteChannel(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) UnmuteChannel(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.UnmuteChannel"

	user, err := s.service.UnmuteChannel(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *Server) GetChatRoomInfo(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.GetChatRoomInfo"

	info, err := s.service.GetChatRoomInfo(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, chatRoomView(info))
}

type membershipResponse struct {
	ContractAddress string `json:"contractAddress"`
	WalletAddress   string `json:"walletAddress"`
	Joined          bool   `json:"joined"`
}

func (s *Server) GetMembership(w http.ResponseWriter, r *http.Request) {
	const op = "http.server.GetMembership"

	contract, wallet := chi.URLParam(r, "address"), chi.URLParam(r, "wallet")

	joined, err := s.service.GetMembership(r.Context(), contract, wallet)
	if err != nil {
		fail(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, membershipResponse{
		ContractAddress: contract,
		WalletAddress:   wallet,
		Joined:          joined,
	})
}
