package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KarpovAlexandrGo/task-tracker/docs"
	"github.com/KarpovAlexandrGo/task-tracker/internal/config"
	controller "github.com/KarpovAlexandrGo/task-tracker/internal/controller/http"
	"github.com/KarpovAlexandrGo/task-tracker/internal/metrics"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
	"github.com/KarpovAlexandrGo/task-tracker/pkg/logger"
)

type App struct {
	Server   *http.Server
	Storage  *Storage
	listener net.Listener
	cache    *cacheHandle
	wg       sync.WaitGroup
}

// NewApp один раз выбирает хранилище, поднимает кэш и собирает HTTP-сервер.
// Порт занимается здесь же, до Run.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	storage := OpenStorage(ctx, cfg)
	cache := openCache(ctx, cfg, storage.Mode)

	m := metrics.New()
	m.SetStorageBackend(storage.Mode)

	docs.SwaggerInfo.BasePath = cfg.APIBasePath

	// Инициализация use case
	taskUseCase := usecase.NewTaskUseCase(storage.Repo, cache.repo, cfg.CacheTTL)

	router := controller.NewRouter(controller.RouterConfig{
		BasePath:    cfg.APIBasePath,
		TaskUseCase: taskUseCase,
		Metrics:     m,
		StorageMode: storage.Mode,
	})

	ln, err := listen(cfg.HTTPPort)
	if err != nil {
		storage.Close(context.Background())
		cache.Close()
		return nil, err
	}

	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Server:   server,
		Storage:  storage,
		listener: ln,
		cache:    cache,
	}, nil
}

// listen пробует порт и, если он занят, ровно один раз следующий.
func listen(port int) (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err == nil {
		return ln, nil
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	logger.Log.Warnf("Port %d is busy, trying port %d", port, port+1)
	ln, err = net.Listen("tcp", fmt.Sprintf(":%d", port+1))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port+1, err)
	}
	return ln, nil
}

func (a *App) Addr() net.Addr {
	return a.listener.Addr()
}

// Run обслуживает запросы до сигнала завершения и делает graceful shutdown.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	return a.Serve(ctx)
}

// Serve работает, пока не отменён ctx.
func (a *App) Serve(ctx context.Context) error {
	defer a.release()

	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		select {
		case <-ctx.Done():
		case <-serverCtx.Done():
			return
		}
		logger.Log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				logger.Log.Error("Graceful shutdown timed out")
			}
			logger.Log.WithError(err).Error("HTTP server shutdown failed")
		}
	}()

	logger.Log.WithField("storage", a.Storage.Mode).Info("Server is running on " + a.listener.Addr().String())
	if err := a.Server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serverStopCtx()
		a.wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	}

	a.wg.Wait()
	logger.Log.Info("Server stopped gracefully")
	return nil
}

func (a *App) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.Storage.Close(ctx)
	a.cache.Close()
}
