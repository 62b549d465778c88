package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/response"
	"github.com/corray333/backend-labs/shop/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/shop/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// routeRegistrar mounts a group of REST routes under /api.
type routeRegistrar interface {
	Register(r chi.Router)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	api     []routeRegistrar
	graphql http.Handler
}

type option func(*HTTPTransport)

// WithAPI adds REST handlers served under /api.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAPI(handlers ...routeRegistrar) option {
	return func(h *HTTPTransport) {
		h.api = append(h.api, handlers...)
	}
}

// WithGraphQL serves handler on /graphql.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithGraphQL(handler http.Handler) option {
	return func(h *HTTPTransport) {
		h.graphql = handler
	}
}

func NewHTTPTransport(opts ...option) *HTTPTransport {
	router := newRouter()
	h := &HTTPTransport{
		server: newServer(router),
		router: router,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *HTTPTransport) Run() error {
	slog.Info("HTTP server started", "addr", h.server.Addr)

	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler exposes the router, mostly for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/health", health)
	h.router.Route("/api", func(r chi.Router) {
		for _, api := range h.api {
			api.Register(r)
		}
	})
	if h.graphql != nil {
		h.router.Handle("/graphql", h.graphql)
	}
	h.router.NotFound(response.NotFound)
}

func health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, map[string]string{"status": "ok"})
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)
	router.Use(middleware.Recoverer)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:      router,
		ReadTimeout:  viper.GetDuration("server.http.read_timeout"),
		WriteTimeout: viper.GetDuration("server.http.write_timeout"),
	}
}
