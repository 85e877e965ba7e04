package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/types"
	"github.com/DoyleJ11/deposit-auction-client/internal/ws"
)

func SetupRoutes(f ws.Facade, a Auth, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bridge")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", Healthz)
	r.Get("/state", State(f))
	r.Get("/ws", ws.Handler(f, logger))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", Login(a, logger))
		r.Post("/logout", Logout(a))
		r.Get("/me", Me(a))
	})

	r.Post("/session/connect", Command(f, simple(types.MsgConnect)))
	r.Post("/session/disconnect", Command(f, simple(types.MsgDisconnect)))

	r.Route("/auctions", func(r chi.Router) {
		r.Post("/", Command(f, createAuction))
		r.Post("/{id}/join", Command(f, forAuction(types.MsgJoinAuction)))
		r.Post("/{id}/lots/refresh", Command(f, forAuction(types.MsgRefreshLots)))
		r.Post("/{id}/online-users", Command(f, forAuction(types.MsgOnlineUsers)))
		r.Post("/{id}/close", Command(f, closeAuction))
	})

	r.Route("/lots", func(r chi.Router) {
		r.Post("/", Command(f, createLot))
		r.Post("/{id}/offers", Command(f, createOffer))
		r.Post("/{id}/close", Command(f, closeLot))
	})

	r.Delete("/offers/{id}", Command(f, cancelOffer))
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
