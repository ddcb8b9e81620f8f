// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moov-io/uptime/admin"
	"github.com/moov-io/uptime/pkg/kv"
	"github.com/moov-io/uptime/pkg/password"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

var (
	// Metrics
	authSuccesses = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_successes",
		Help: "Count of successful authorizations",
	}, []string{"method"})
	authFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_failures",
		Help: "Count of failed authorizations",
	}, []string{"method"})
	authInactivations = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_inactivations",
		Help: "Count of revoked tokens",
	}, []string{"method"})

	tokenGenerations = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_token_generations",
		Help: "Count of auth tokens created",
	}, []string{"method"})

	cascadeFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "check_cascade_failures",
		Help: "Count of writes which failed after their primary mutation committed",
	}, []string{"resource"})

	internalServerErrors = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "http_internal_errors",
		Help: "Count of responses with a 500 status",
	}, nil)
)

const Version = "0.1.0-dev"

func main() {
	app := &cli.App{
		Name:    "uptime",
		Usage:   "HTTP API for accounts, tokens and monitored checks",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"UPTIME_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "http.addr",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:  "admin.addr",
				Usage: "Admin HTTP listen address",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	// Setup logging, default to stderr
	var logger log.Logger
	logger = log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	logger.Log("startup", fmt.Sprintf("Starting uptime server version %s", Version))

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("http.addr") {
		cfg.HTTP.Addr = c.String("http.addr")
	}
	if c.IsSet("admin.addr") {
		cfg.Admin.Addr = c.String("admin.addr")
	}

	store, err := openStore(logger, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Log("storage", fmt.Sprintf("using %s at %s", cfg.Storage.Driver, cfg.Storage.Path))

	// Listen for application termination.
	errs := make(chan error)
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-sigs)
	}()

	handler := newRouter(logger, setupHandlers(logger, cfg, store))

	readTimeout, _ := time.ParseDuration("30s")
	writTimeout, _ := time.ParseDuration("30s")
	idleTimeout, _ := time.ParseDuration("60s")

	serve := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writTimeout,
		IdleTimeout:  idleTimeout,
	}

	admin.Init()
	adminService := admin.NewServer(cfg.Admin.Addr)
	adminService.AddLivenessCheck("storage", store.Ping)
	go func() {
		logger.Log("admin", fmt.Sprintf("Starting admin service on %s", adminService.BindAddress()))
		if err := adminService.Listen(); err != nil {
			logger.Log("admin", "shutting down", "error", err)
		}
	}()

	go func() {
		logger.Log("transport", "HTTP", "addr", cfg.HTTP.Addr)
		if err := serve.ListenAndServe(); err != http.ErrServerClosed {
			errs <- err
		}
	}()

	err = <-errs
	logger.Log("exit", err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminService.Shutdown(ctx); err != nil {
		logger.Log("admin", err)
	}
	if err := serve.Shutdown(ctx); err != nil {
		logger.Log("shutdown", err)
	}
	return nil
}

func openStore(logger log.Logger, cfg *Config) (kv.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return kv.OpenSQLite(logger, cfg.Storage.Path)
	default:
		return kv.OpenBunt(cfg.Storage.Path)
	}
}

// setupHandlers wires every resource handler to store and returns the
// table the router dispatches on.
func setupHandlers(logger log.Logger, cfg *Config, store kv.Store) dispatchTable {
	recs := records{store: store}
	hasher := password.Argon2id{}

	tokens := &tokenManager{
		logger:  logger,
		records: recs,
		hasher:  hasher,
		ttl:     cfg.Tokens.TTL,
		now:     time.Now,
		newID:   randomString,
	}
	accounts := &accountHandler{
		logger:  logger,
		records: recs,
		hasher:  hasher,
		tokens:  tokens,
	}
	checks := &checkHandler{
		logger:    logger,
		records:   recs,
		tokens:    tokens,
		maxChecks: cfg.Checks.Max,
		newID:     randomString,
	}
	return newDispatchTable(accounts, tokens, checks)
}
