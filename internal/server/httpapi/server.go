// Package httpapi exposes the file and group services over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/dmitrijs2005/filegroups/internal/logging"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
	"github.com/dmitrijs2005/filegroups/internal/server/services"
	"github.com/gin-gonic/gin"
)

// FileService is the file store as seen by the handlers.
type FileService interface {
	Upload(ctx context.Context, f services.UploadFile) (string, error)
	Get(ctx context.Context, id string) (*models.File, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]models.FileMeta, error)
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, base string) (string, error)
}

// GroupService is the group store as seen by the handlers.
type GroupService interface {
	CreateOrMerge(ctx context.Context, name string, files []models.FileMeta) (*models.Group, error)
	Get(ctx context.Context, identifier string) (*models.Group, error)
	List(ctx context.Context) ([]*models.Group, error)
	FilesOf(ctx context.Context, groupName string) ([]models.FileMeta, error)
	ResolveFiles(ctx context.Context, identifier string) ([]models.FileMeta, error)
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, name string) error
	RemoveFile(ctx context.Context, groupID, fileID string) (bool, error)
	AddFiles(ctx context.Context, groupID string, files []models.FileMeta) error
	RenameFile(ctx context.Context, groupID, fileID, base string) (string, error)
}

var (
	_ FileService  = (*services.FileService)(nil)
	_ GroupService = (*services.GroupService)(nil)
)

const shutdownTimeout = 5 * time.Second

// Options tunes request handling.
type Options struct {
	// RequestTimeout bounds the context of every request. Zero disables it.
	RequestTimeout time.Duration
	// MaxUploadSize limits a single uploaded file, bytes.
	MaxUploadSize int64
}

type Server struct {
	address string
	files   FileService
	groups  GroupService
	logger  logging.Logger
	metrics *metrics.Set
	opts    Options
	engine  *gin.Engine
}

func NewServer(address string, l logging.Logger, fs FileService, gs GroupService, opts Options) *Server {
	s := &Server{
		address: address,
		files:   fs,
		groups:  gs,
		logger:  l.With("module", "http_server"),
		metrics: metrics.NewSet(),
		opts:    opts,
	}
	s.engine = s.newEngine()
	return s
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) newEngine() *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery(), s.observe(), s.timeout())
	e.MaxMultipartMemory = s.opts.MaxUploadSize

	e.GET("/health", s.health)
	e.GET("/metrics", s.writeMetrics)

	v1 := e.Group("/api/v1")
	{
		files := v1.Group("/files")
		files.POST("", s.uploadFile)
		files.GET("", s.listFiles)
		files.GET("/:id", s.getFile)
		files.HEAD("/:id", s.fileExists)
		files.DELETE("/:id", s.deleteFile)
		files.PATCH("/:id", s.renameFile)

		groups := v1.Group("/groups")
		groups.POST("", s.createGroup)
		groups.GET("", s.listGroups)
		groups.GET("/:id", s.getGroup)
		groups.PATCH("/:id", s.renameGroup)
		groups.DELETE("/:id", s.deleteGroup)
		groups.GET("/:id/files", s.groupFiles)
		groups.POST("/:id/files", s.addGroupFiles)
		groups.DELETE("/:id/files/:fid", s.removeGroupFile)
		groups.PATCH("/:id/files/:fid", s.renameGroupFile)
	}
	return e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
