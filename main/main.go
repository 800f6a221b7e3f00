// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

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

	log "github.com/inconshreveable/log15"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/leveldb"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/convm/contractingvm/contractingvm"
)

func main() {
	p, err := getParams()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	// Print version and exit
	if p.printVersion {
		fmt.Printf("%s@%s\n", contractingvm.Name, contractingvm.Version)
		os.Exit(0)
	}

	if err := run(p); err != nil {
		fmt.Printf("node returned an error: %s\n", err)
		os.Exit(1)
	}
}

func run(p *params) error {
	lvl, err := log.LvlFromString(p.logLevel)
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}
	logger := log.New("module", contractingvm.Name)
	logger.SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat())))

	registry := prometheus.NewRegistry()

	var db database.Database
	if p.dbDir == "" {
		logger.Warn("no database directory configured, state will not survive a restart")
		db = memdb.New()
	} else {
		db, err = leveldb.New(p.dbDir, nil, logging.NoLog{}, "leveldb", registry)
		if err != nil {
			return fmt.Errorf("couldn't open database at %s: %w", p.dbDir, err)
		}
	}

	engine, err := contractingvm.NewEngine(db, p.config, logger, registry)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	handler, err := contractingvm.NewHandler(engine)
	if err != nil {
		return err
	}
	staticHandler, err := contractingvm.NewStaticHandler()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", handler)
	mux.Handle("/rpc/static", staticHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", p.httpPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("serving", "port", p.httpPort)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return engine.Commit()
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
