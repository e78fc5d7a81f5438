// Package api serves flowkeeper projects over HTTP.
//
// The server keeps one [session.Session] per project in a [session.Manager]
// and exposes the engine as JSON endpoints:
//
//	GET  /healthz                        build info and open session count
//	GET  /metrics                        Prometheus metrics
//	GET  /v1/catalog                     node kinds and their ports
//	POST /v1/validate                    check a connection candidate
//	POST /v1/migrate                     upgrade a stored project record
//	GET  /v1/projects/{id}               current project, load report and hint
//	PUT  /v1/projects/{id}               replace the project
//	POST /v1/projects/{id}/changes       apply a node change batch
//	POST /v1/projects/{id}/commands      dispatch a command
//	POST /v1/projects/{id}/flush         write pending changes now
//	GET  /v1/projects/{id}/export        logic export
//	GET  /v1/projects/{id}/layout        editor layout record
//	GET  /v1/projects/{id}/render.svg    Graphviz rendering
//	GET  /v1/projects/{id}/ws            live updates and commands over a websocket
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/flowkeeper/pkg/config"
	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/session"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

// Server is the HTTP front end of a session manager.
type Server struct {
	cfg      config.ServerConfig
	manager  *session.Manager
	metrics  *Metrics
	logger   *log.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader
	router   chi.Router
}

// New creates a server for manager. Metrics are registered as the process
// hooks so sessions report into them.
func New(manager *session.Manager, cfg config.ServerConfig, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:      cfg,
		manager:  manager,
		metrics:  NewMetrics(manager.Len),
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.metrics.Register()
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/catalog", s.handleCatalog)
		v1.Post("/validate", s.handleValidate)
		v1.Post("/migrate", s.handleMigrate)

		v1.Route("/projects/{id}", func(p chi.Router) {
			p.Get("/", s.handleGetProject)
			p.Put("/", s.handlePutProject)
			p.Post("/changes", s.handleChanges)
			p.Post("/commands", s.handleCommand)
			p.Post("/flush", s.handleFlush)
			p.Get("/export", s.handleExport)
			p.Get("/layout", s.handleLayout)
			p.Get("/render.svg", s.handleRender)
			p.Get("/ws", s.handleWebSocket)
		})
	})
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully and closes
// every session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout.Duration,
		WriteTimeout: s.cfg.WriteTimeout.Duration,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(errors.ErrCodeConfig, err, "listen on %s", s.cfg.Addr)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.ShutdownTimeout.Duration
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		if cerr := s.manager.CloseAll(shutdownCtx); cerr != nil {
			s.logger.Error("flush on shutdown failed", "err", cerr)
			if err == nil {
				err = cerr
			}
		}
		return err
	})
	return g.Wait()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Response Helpers
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: string(errors.GetCode(err))})
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	if err := s.validate.Struct(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request: %s", err.Error())
	}
	return nil
}

// session returns the session named by the {id} path parameter.
func (s *Server) session(r *http.Request) (*session.Session, error) {
	return s.manager.Get(r.Context(), chi.URLParam(r, "id"))
}
