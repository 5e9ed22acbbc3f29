package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbolis/geo-survey/app"
	"github.com/mbolis/geo-survey/config"
	"github.com/mbolis/geo-survey/database"
	"github.com/mbolis/geo-survey/httpx"
	"github.com/mbolis/geo-survey/log"
	"github.com/mbolis/geo-survey/routes"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
	}

	handler := routes.Wire(app)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runServer(ctx, cfg, handler)
	if err != nil {
		log.Fatal("main.server:", err)
	}
}

// runServer serves until ctx is done, then drains in-flight requests.
func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening on " + cfg.Url())
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
