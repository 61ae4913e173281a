// Package workerapp is the common AppRunner bootstrap every worker cmd/*
// binary shares: flag parsing, logger construction, a queue.Client scoped
// to the worker's role, and signal-driven cooperative shutdown (spec §4.2's
// shutdown() completing the in-flight cycle before exit). Factored out of
// what would otherwise be nine near-identical copies of cmd/cronplusd/
// main.go's flag/logger/signal boilerplate, one per Worker implementation.
package workerapp

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/observability"
	"github.com/sonicat/sonicat/internal/queue"
	"github.com/sonicat/sonicat/internal/router"
	"github.com/sonicat/sonicat/internal/worker"
)

// Flags are the command-line flags every worker binary exposes.
type Flags struct {
	SonicatPath string
	LogLevel    string
	QueueAddr   string
	Concurrency int
}

// ParseFlags registers and parses the common flag set. Call once from main.
func ParseFlags(defaultQueueAddr string) *Flags {
	f := &Flags{}
	flag.StringVar(&f.SonicatPath, "sonicat-path", "", "Root Sonicat data/log/tmp path (spec §6)")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides LOG_LEVEL)")
	flag.StringVar(&f.QueueAddr, "queue-addr", defaultQueueAddr, "Queue broker address")
	flag.IntVar(&f.Concurrency, "concurrency", 1, "Number of concurrent task cycles")
	flag.Parse()
	return f
}

// NewLogger builds this process's file-backed logger (spec §6's
// log/<type>/YYYY-MM-DD-<moniker>.log), falling back to stdout-only logging
// if sonicatPath isn't set (e.g. local/dev runs).
func NewLogger(f *Flags, appType, moniker string) *zap.SugaredLogger {
	level := observability.EnvLogLevel(f.LogLevel)
	if f.SonicatPath == "" {
		return observability.NewLogger(level)
	}
	logger, err := observability.NewFileLogger(level, f.SonicatPath, appType, moniker)
	if err != nil {
		l := observability.NewLogger(level)
		l.Warnw("failed to open file logger, falling back to stdout", "error", err)
		return l
	}
	return logger
}

// Run connects role's queue.Client, wires w into a worker.Runner, and
// blocks until SIGINT/SIGTERM, then waits (bounded to 10s) for the
// in-flight cycle to drain before returning.
func Run(role, appType string, w worker.Worker, f *Flags, log *zap.SugaredLogger, pending router.PendingQueryer) {
	qc, err := queue.NewClient(f.QueueAddr, role)
	if err != nil {
		log.Errorw("failed to connect to queue broker", "addr", f.QueueAddr, "role", role, "error", err)
		os.Exit(1)
	}
	defer qc.Close()

	r := &worker.Runner{
		AppName:     role,
		AppType:     appType,
		Worker:      w,
		Queues:      qc,
		Pending:     pending,
		Log:         log,
		Concurrency: f.Concurrency,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil {
			log.Errorw("worker run failed", "role", role, "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("signal received, shutting down", "role", role, "signal", sig.String())
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Errorw("graceful shutdown timed out", "role", role)
	}
	log.Infow("shutdown complete", "role", role)
}
