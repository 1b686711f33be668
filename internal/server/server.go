// Package server maps Web Annotation Protocol requests onto the annotation
// and container services.
//
// Every path below /wap/ names an object: paths ending in a slash are
// containers, anything else is an annotation. A container path with a page
// query parameter names one of its pages.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/geoknoesis/wap-go/internal/config"
	"github.com/geoknoesis/wap-go/internal/format"
	"github.com/geoknoesis/wap-go/internal/service"
	"github.com/geoknoesis/wap-go/internal/waperr"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 10 << 20

// Server is the http.Handler of the annotation server.
type Server struct {
	router      chi.Router
	cfg         *config.Config
	formats     *format.Registry
	annotations *service.AnnotationService
	containers  *service.ContainerService
	log         *logrus.Entry
	maxBody     int64
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// New returns a Server serving svc.
func New(cfg *config.Config, svc *service.Service, formats *format.Registry, logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		cfg:         cfg,
		formats:     formats,
		annotations: svc.Annotations(),
		containers:  svc.Containers(),
		log:         logger.WithField("component", "server"),
		maxBody:     DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, waperr.New(waperr.MethodNotAllowed, "This server does not support the requested HTTP method"))
	})
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, waperr.New(waperr.NotExistent, "No resource below %s", r.URL.Path))
	})

	pattern := config.WAPEndpoint + "*"
	s.router.Get(pattern, s.handleRead)
	s.router.Head(pattern, s.handleRead)
	s.router.Options(pattern, s.handleRead)
	s.router.Post(pattern, s.handlePost)
	s.router.Put(pattern, s.handlePut)
	s.router.Delete(pattern, s.handleDelete)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"query":    r.URL.RawQuery,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start),
		}).Info("request")
	})
}
