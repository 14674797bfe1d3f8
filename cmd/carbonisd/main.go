// Command carbonisd runs the content-addressed storage node: it loads
// its config, binds its HTTP frontend, and serves until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carbonis/cmd/carbonisd/httpapi"
	"carbonis/internal/logging"
	"carbonis/internal/nodeconfig"
	"carbonis/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		if err := runStart(os.Args[2:]); err != nil {
			log := logging.Log()
			log.Error(err)
			var chain []error
			for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(inner) {
				chain = append(chain, inner)
			}
			for _, cause := range chain {
				fmt.Fprintf(os.Stderr, "because: %s\n", cause)
			}
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: carbonisd start [-addr host:port]")
}

// runStart loads config, binds the HTTP frontend, and serves until
// SIGINT/SIGTERM — the Go rendition of the original source's
// tokio::signal::ctrl_c()-gated Commands::Start.
func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:7000", "address to bind the HTTP frontend on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.Log()

	cfg, err := nodeconfig.Global()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	st := store.New(cfg)
	router := httpapi.NewRouter(st)

	srv := &http.Server{
		Addr:    *addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("carbonis HTTP frontend successfully running at %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
