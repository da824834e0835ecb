// Package server wires configuration, storage and the HTTP API together and
// runs the file group server until it receives a termination signal.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filegroups/internal/logging"
	"github.com/dmitrijs2005/filegroups/internal/server/config"
	"github.com/dmitrijs2005/filegroups/internal/server/httpapi"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filegroups/internal/server/services"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	repomanager  repomanager.RepositoryManager
	fileService  *services.FileService
	groupService *services.GroupService
}

// newRepositoryManager is a seam for tests.
var newRepositoryManager = repomanager.New

// NewApp connects the storage backend selected by c and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	rm, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	if err := rm.EnsureIndexes(ctx); err != nil {
		_ = rm.Close(ctx)
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	fs := services.NewFileService(rm, logger)
	gs := services.NewGroupService(rm, fs, logger)

	return &App{config: c, logger: logger, repomanager: rm, fileService: fs, groupService: gs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.fileService, app.groupService, httpapi.Options{
		RequestTimeout: app.config.RequestTimeout,
		MaxUploadSize:  app.config.MaxUploadSize,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the storage connection.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.repomanager.Close(context.WithoutCancel(ctx)); err != nil {
		app.logger.Error(ctx, "storage close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
