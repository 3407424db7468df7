// Command logshack-mock serves an in-memory LogShackBaby backend with one
// seeded account per role, for trying the client without the real stack.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/logshack/internal/fakeapi"
	"github.com/me/logshack/internal/logging"
)

func main() {
	addr := flag.String("addr", ":5000", "Listen address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	seed := flag.Bool("seed", true, "Load demo accounts, QSOs and a contest")
	flag.Parse()

	logger := logging.NewLogger(logging.ParseLevel(*logLevel), *logFormat)

	api := fakeapi.New(logger, fakeapi.WithRequestLogging())
	if *seed {
		api.Seed(time.Now())
		logger.Info("demo data loaded", "password", fakeapi.DemoPassword, "mfa_code", fakeapi.DefaultMFACode)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("mock server starting", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
