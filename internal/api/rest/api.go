package rest

import (
	"net/http"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/handlers"
	"github.com/CameronXie/tailor-ledger/internal/api/rest/middlewares"
)

const APIPrefix = "/api/v1"

type RouterConfig struct {
	SignInHandler http.Handler
	SignUpHandler http.Handler
	HealthHandler http.Handler

	// MediaHandler is nil unless photos are kept on the local filesystem.
	MediaHandler http.Handler

	Orders       *handlers.OrderHandler
	Capabilities *handlers.CapabilityHandler

	ReceiptHandler   http.Handler
	ImageHandler     http.Handler
	DashboardHandler http.Handler
	ExportHandler    http.Handler
	ImportHandler    http.Handler
	ProfileHandler   http.Handler
	ReconcileHandler http.Handler

	AuthorisationMiddleware middlewares.Middleware
}

// NewMuxWithHandlers initializes a new HTTP mux with routes defined by the given RouterConfig.
// Everything under /api/v1 passes the authorisation middleware, which sees
// the path with the prefix removed.
func NewMuxWithHandlers(cfg *RouterConfig) *http.ServeMux {
	api := http.NewServeMux()

	api.HandleFunc("GET /orders", cfg.Orders.List)
	api.HandleFunc("POST /orders", cfg.Orders.Create)
	api.HandleFunc("GET /orders/{id}", cfg.Orders.Get)
	api.HandleFunc("PUT /orders/{id}", cfg.Orders.Update)
	api.HandleFunc("DELETE /orders/{id}", cfg.Orders.Delete)
	api.HandleFunc("POST /orders/{id}/toggle", cfg.Orders.Toggle)
	api.Handle("GET /orders/{id}/receipt", cfg.ReceiptHandler)

	api.Handle("POST /images", cfg.ImageHandler)
	api.Handle("GET /dashboard", cfg.DashboardHandler)
	api.Handle("GET /export/{format}", cfg.ExportHandler)
	api.Handle("POST /import", cfg.ImportHandler)
	api.Handle("GET /profile", cfg.ProfileHandler)

	api.HandleFunc("GET /capabilities", cfg.Capabilities.List)
	api.HandleFunc("GET /capabilities/{name}", cfg.Capabilities.Request)

	api.Handle("POST /admin/reconcile", cfg.ReconcileHandler)

	router := http.NewServeMux()

	router.Handle("POST /auth/signin", cfg.SignInHandler)
	router.Handle("POST /auth/signup", cfg.SignUpHandler)
	router.Handle("GET /health", cfg.HealthHandler)

	if cfg.MediaHandler != nil {
		router.Handle("GET /media/{key...}", cfg.MediaHandler)
	}

	router.Handle(APIPrefix+"/", http.StripPrefix(APIPrefix, cfg.AuthorisationMiddleware.Handle(api)))

	return router
}
