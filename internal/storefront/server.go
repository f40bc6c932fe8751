package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Server wraps the storefront HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *logrus.Logger
}

func New(addr string, logger *logrus.Logger, deps Deps) (*Server, error) {
	router, err := buildRouter(logger, deps)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
