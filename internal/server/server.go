// Package server exposes an entity context over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvt2106/magicstore"
	"github.com/nvt2106/magicstore/dialect/sql"
)

// HeaderRequestID carries the id of a request. Incoming values are kept,
// missing ones are generated.
const HeaderRequestID = "X-Request-Id"

const requestIDKey = "magicstore.request_id"

// Server serves the entities of one context:
//
//	GET    /meta/schemas       declared schemas
//	GET    /meta/stats         SQL statistics, when enabled
//	GET    /api/:schema        search: where, sort, size, page
//	POST   /api/:schema        create
//	GET    /api/:schema/:id    get
//	PUT    /api/:schema/:id    update
//	DELETE /api/:schema/:id    delete
type Server struct {
	ec     *magicstore.EntityContext
	log    *slog.Logger
	stats  *sql.QueryStats
	ids    *idSource
	debug  bool
	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDebug runs gin in debug mode.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// WithStats exposes SQL statistics on /meta/stats.
func WithStats(stats *sql.QueryStats) Option {
	return func(s *Server) { s.stats = stats }
}

// New returns a server for ec.
func New(ec *magicstore.EntityContext, opts ...Option) *Server {
	s := &Server{
		ec:  ec,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids: newIDSource(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.logRequests())

	meta := r.Group("/meta")
	meta.GET("/schemas", s.listSchemas)
	meta.GET("/stats", s.queryStats)

	api := r.Group("/api")
	api.GET("/:schema", s.search)
	api.POST("/:schema", s.create)
	api.GET("/:schema/:id", s.get)
	api.PUT("/:schema/:id", s.update)
	api.DELETE("/:schema/:id", s.delete)
	s.engine = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("server: listening", "addr", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = s.ids.next()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.Log(c.Request.Context(), level, "server: request",
			"id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
