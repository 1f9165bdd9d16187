package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/datingapp/internal/config"
	authsvc "github.com/ivankudzin/datingapp/internal/services/auth"
	likessvc "github.com/ivankudzin/datingapp/internal/services/likes"
	messagessvc "github.com/ivankudzin/datingapp/internal/services/messages"
	userssvc "github.com/ivankudzin/datingapp/internal/services/users"
	"github.com/ivankudzin/datingapp/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService    *authsvc.Service
	UserService    *userssvc.Service
	LikeService    *likessvc.Service
	MessageService *messagessvc.Service
	HealthChecks   []handlers.HealthCheck
	Logger         *zap.Logger
	Config         config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks...)
	usersHandler := handlers.NewUsersHandler(deps.UserService)
	likesHandler := handlers.NewLikesHandler(deps.LikeService)
	messagesHandler := handlers.NewMessagesHandler(deps.MessageService, deps.Config.Messages.DefaultPageSize)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	var toucher ActivityToucher
	if deps.UserService != nil {
		toucher = deps.UserService
	}
	activityMW := ActivityMiddleware(toucher, deps.Logger)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authMW, activityMW)

			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/users", usersHandler.Discover)
			r.Get("/users/{user_id}", usersHandler.Get)
			r.Post("/users/{user_id}/like/{recipient_id}", likesHandler.Like)

			r.Route("/users/{user_id}/messages", func(r chi.Router) {
				r.Get("/", messagesHandler.Mailbox)
				r.Post("/", messagesHandler.Send)
				r.Get("/thread/{recipient_id}", messagesHandler.Thread)
				r.Get("/{id}", messagesHandler.Get)
				r.Post("/{id}", messagesHandler.Delete)
				r.Post("/{id}/read", messagesHandler.MarkRead)
			})
		})
	})
}
