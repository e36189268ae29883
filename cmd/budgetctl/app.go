package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"

	"budgetcore/internal/auth"
	"budgetcore/internal/config"
	"budgetcore/internal/core"
	"budgetcore/internal/logging"
)

// A CLI invocation is short lived, so global flags and writers are fine.
var (
	envFile      *string
	printMetrics *bool

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func registerGlobalFlags(fs *flag.FlagSet) {
	envFile = fs.String("env-file", ".env", "Optional .env file read before the environment")
	printMetrics = fs.Bool("metrics", false, "Print operation metrics to stderr on exit")
}

type app struct {
	svc     *core.Service
	log     *logging.Logger
	metrics *core.ExpvarMetricsRecorder
	closers []func() error
}

// openApp wires configuration, logging, storage, authentication and the
// service, then starts the service.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Output: stderr, Component: "budgetctl"})
	if err != nil {
		return nil, err
	}
	a := &app{log: log, closers: []func() error{log.Close}}

	cache, closeCache, err := core.OpenLocalCache(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	remote, closeRemote, err := core.OpenRemoteStore(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeRemote)

	prom, err := core.NewPrometheusMetricsRecorder(prometheus.NewRegistry())
	if err != nil {
		a.close()
		return nil, err
	}
	a.metrics = core.NewExpvarMetricsRecorder("")
	opts := []core.Option{
		core.WithLogger(log),
		core.WithMetricsRecorder(core.MultiMetricsRecorder(a.metrics, prom)),
		core.WithAuditRecorder(core.LogAuditRecorder{Logger: log}),
	}
	if remote != nil {
		opts = append(opts, core.WithRemoteStore(remote))
	}
	if cfg.JWTSecret != "" {
		provider, err := auth.New(cache, []byte(cfg.JWTSecret), auth.WithTTL(cfg.SessionTTL))
		if err != nil {
			a.close()
			return nil, err
		}
		opts = append(opts, core.WithAuthProvider(provider))
	}

	svc, err := core.NewService(cache, opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}

func (a *app) close() {
	if a.svc != nil {
		a.svc.Close()
	}
	if *printMetrics && a.metrics != nil {
		enc := json.NewEncoder(stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(a.metrics.Snapshot())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// run opens the app, runs fn and maps its error to an exit status.
func run(ctx context.Context, fn func(*app) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()
	if err := fn(a); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// requirePasscode checks the global UI passcode before a destructive command.
func requirePasscode(a *app, passcode string) error {
	if passcode == "" {
		return usagef("-passcode is required")
	}
	ok, err := a.svc.VerifyPasscode(passcode)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrWrongPasscode
	}
	return nil
}

func reportNoOp(ok bool, what string) {
	if !ok {
		fmt.Fprintf(stdout, "No change: %s not found.\n", what)
	}
}
