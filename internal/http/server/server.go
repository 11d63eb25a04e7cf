package server

import (
	"context"
	"net/http"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/http/middleware"
	"github.com/AlexMickh/exoterra-chat/internal/models"
	"github.com/AlexMickh/exoterra-chat/internal/service"
	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodySize = 1 << 20

type Service interface {
	Login(ctx context.Context, walletAddress string, signature string) (string, models.User, error)
	Authenticate(ctx context.Context, token string) (models.User, error)
	CreateUser(ctx context.Context, walletAddress string, displayName string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.UserPreview, error)
	GetUser(ctx context.Context, walletAddress string) (models.User, error)
	UpdateUser(ctx context.Context, requester models.User, walletAddress string, displayName string) (models.User, error)
	DeleteUser(ctx context.Context, requester models.User, walletAddress string) error
	ListUserChannels(ctx context.Context, requester models.User) ([]models.ChannelPreview, error)

	CreateChannel(ctx context.Context, requester models.User, req service.CreateChannelRequest) (models.Channel, error)
	ListChannels(ctx context.Context) ([]models.ChannelPreview, error)
	GetChannel(ctx context.Context, id string) (models.ChannelDetail, error)
	UpdateChannel(ctx context.Context, requester models.User, id string, name string) (models.Channel, error)
	DeleteChannel(ctx context.Context, requester models.User, id string) error
	JoinChannel(ctx context.Context, requester models.User, id string) (models.Channel, error)
	MuteChannel(ctx context.Context, requester models.User, id string) (models.User, error)
	UnmuteChannel(ctx context.Context, requester models.User, id string) (models.User, error)
	GetChatRoomInfo(ctx context.Context, contract string) (models.ChatRoomInfo, error)
	GetMembership(ctx context.Context, contract string, walletAddress string) (bool, error)

	CreateMessage(ctx context.Context, requester models.User, channelId string, content string, image string) (models.Message, error)
	ListMessages(ctx context.Context, requester models.User, channelId string, page int, pageSize int) ([]models.Message, error)
	GetMessage(ctx context.Context, requester models.User, id string) (models.Message, error)
	RecallMessage(ctx context.Context, requester models.User, id string) error
	UploadImage(ctx context.Context, requester models.User, data []byte, contentType string) (string, string, error)
}

// Check reports whether a dependency is reachable.
type Check = func(ctx context.Context) error

type Server struct {
	service Service
	checks  map[string]Check
	started time.Time
}

func New(service Service, checks map[string]Check) *Server {
	return &Server{
		service: service,
		checks:  checks,
		started: time.Now(),
	}
}

// Router builds the HTTP API. ctx carries the logger handed to every request.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logger.Middleware(ctx))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/login", s.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(s.service))

			r.Route("/users", func(r chi.Router) {
				r.Post("/", s.CreateUser)
				r.Get("/", s.ListUsers)
				r.Get("/me/channels", s.ListUserChannels)
				r.Get("/{wallet}", s.GetUser)
				r.Put("/{wallet}", s.UpdateUser)
				r.Delete("/{wallet}", s.DeleteUser)
			})

			r.Route("/channels", func(r chi.Router) {
				r.Post("/", s.CreateChannel)
				r.Get("/", s.ListChannels)
				r.Get("/{id}", s.GetChannel)
				r.Put("/{id}", s.UpdateChannel)
				r.Delete("/{id}", s.DeleteChannel)
				r.Post("/{id}/join", s.JoinChannel)
				r.Post("/{id}/mute", s.MuteChannel)
				r.Post("/{id}/unmute", s.UnmuteChannel)
				r.Get("/{id}/messages", s.ListMessages)
			})

			r.Get("/chatrooms/{address}", s.GetChatRoomInfo)
			r.Get("/chatrooms/{address}/members/{wallet}", s.GetMembership)

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", s.CreateMessage)
				r.Post("/images", s.UploadImage)
				r.Get("/{id}", s.GetMessage)
				r.Delete("/{id}", s.RecallMessage)
			})
		})
	})

	return r
}
