package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// ProjectService is the read side of the project store the UI lists from.
type ProjectService interface {
	List(ctx context.Context) ([]*project.Summary, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	Delete(ctx context.Context, id string) error
	Exports(ctx context.Context, id string) ([]render.Progress, error)
}

type AssetCatalog interface {
	List() []*assets.Record
}

type AssetIngestor interface {
	Upload(ctx context.Context, filename string, size int64, r io.Reader) (*assets.Record, error)
	ImportFromLibrary(ctx context.Context, userFileID string) (*assets.Record, error)
}

type MediaServer interface {
	ServeAsset(w http.ResponseWriter, r *http.Request, assetID string) error
}

// ConfigStore holds the local API token under the "auth_token" key.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
}

type ServerConfig struct {
	Port      int
	Sessions  *session.Manager
	Projects  ProjectService
	Assets    AssetCatalog
	Ingest    AssetIngestor
	Media     MediaServer
	Config    ConfigStore
	Remote    bool
	Logger    *slog.Logger
	StartTime time.Time
	Version   string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// Media streams and uploads can run long.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
