package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Application holds all the components and manages the application lifecycle
type Application struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container *Container
}

// NewApplication creates and fully initializes a new Application instance
func NewApplication(ctx context.Context) (*Application, error) {
	appCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	app := &Application{
		ctx:    appCtx,
		cancel: cancel,
	}

	container, err := NewContainer(app.ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	app.container = container

	app.container.Logger().Info("Application initialized successfully")
	return app, nil
}

// Run serves HTTP and consumes order events side by side. The two tasks share
// nothing but the process: when either stops, the other is cancelled. Run
// returns the first error, e.g. broker.ErrBrokerUnavailable from the consumer.
func (app *Application) Run() error {
	ctx, cancel := context.WithCancel(app.ctx)
	defer cancel()

	tasks := []struct {
		name string
		run  func(context.Context) error
	}{
		{"http", app.serveHTTP},
		{"consumer", app.container.ConsumerService().Start},
	}

	errCh := make(chan error, len(tasks))
	for _, task := range tasks {
		go func() {
			err := task.run(ctx)
			if err != nil {
				err = fmt.Errorf("%s: %w", task.name, err)
			}
			errCh <- err
		}()
	}

	var firstErr error
	for range tasks {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			app.container.Logger().Error("Task failed, stopping application", zap.Error(err))
		}
		cancel()
	}
	return firstErr
}

func (app *Application) serveHTTP(ctx context.Context) error {
	cfg := app.container.Config()
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.container.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.container.Logger().Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	app.container.Logger().Info("HTTP server stopped")
	return nil
}

// Shutdown gracefully shuts down all application components
func (app *Application) Shutdown() {
	if app.container != nil {
		app.container.Logger().Info("Starting application shutdown...")
	}

	if app.cancel != nil {
		app.cancel()
	}

	if app.container != nil {
		app.container.Shutdown(context.Background())
	}
}
