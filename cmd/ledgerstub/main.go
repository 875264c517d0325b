package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Naveen474/fake-product-detection/internal/ledger/ledgertest"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

func main() {
	addr := pflag.String("addr", ":5000", "listen address")
	logLevel := pflag.String("log-level", "info", "debug, info, warn or error")
	demo := pflag.Bool("demo", false, "seed a demo manufacturer (demo/demo)")
	pflag.Parse()

	logger, err := utils.NewLogger("", *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	stub := ledgertest.New()
	if *demo {
		if err := stub.AddUser("demo", "demo", models.RoleManufacturer); err != nil {
			logger.Error("failed to seed demo user", "error", err)
			os.Exit(1)
		}
	}
	handler := stub.Handler()
	server := &http.Server{
		Addr:              *addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request", "method", r.Method, "path", r.URL.Path)
			handler.ServeHTTP(w, r)
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("ledger stub listening", "addr", *addr, "api", "/api")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
