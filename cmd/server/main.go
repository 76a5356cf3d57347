package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stallpass/api/internal/config"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/notify"
	"github.com/stallpass/api/internal/router"
	"github.com/stallpass/api/internal/ws"
	"github.com/stallpass/api/migrations"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		log.Println("Applying migrations")
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	log.Println("Connected to database")

	hub := ws.NewHub()
	events := notify.Fanout{hub}
	if cfg.AMQPURL != "" {
		amqpPub, err := notify.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer amqpPub.Close()
		events = append(events, amqpPub)
		log.Println("Publishing order events to AMQP")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, database.New(pool), pool, hub, events),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	log.Printf("Starting server on :%s", cfg.Port)
	return serve(ctx, srv, ln, hub.Run)
}

// serve runs the HTTP server and the hub until ctx is cancelled. The hub
// stops only after Shutdown has drained in-flight requests, so their events
// still reach subscribers.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, runHub func(context.Context) error) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHub(hubCtx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down")
		defer stopHub()
		return shutdown(srv, shutdownTimeout)
	})

	return g.Wait()
}

// shutdown drains in-flight requests, giving up after timeout.
func shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
