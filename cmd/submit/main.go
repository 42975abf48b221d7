package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/segscore/internal/submitter"
	"github.com/okian/segscore/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout    = 60 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8000", "Base URL of the service")
		name        = flag.String("name", "", "Contestant name")
		workers     = flag.Int("workers", runtime.NumCPU(), "Number of concurrent uploads")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		idempotent  = flag.Bool("idempotent", true, "Send an Idempotency-Key with each upload")
		leaderboard = flag.Bool("leaderboard", true, "Print the leaderboard afterwards")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Usage = func() {
		os.Stderr.WriteString("Usage: submit -name NAME [options] ARCHIVE...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelRun := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancelRun()

	cfg := &submitter.Config{
		BaseURL:     *baseURL,
		Name:        *name,
		Files:       flag.Args(),
		Workers:     *workers,
		Timeout:     *timeout,
		Idempotent:  *idempotent,
		Leaderboard: *leaderboard,
	}
	stats, err := submitter.Run(ctx, cfg, os.Stdout)
	if err != nil {
		logger.Get().Error(ctx, "submission run failed", logger.Error(err))
		os.Exit(1)
	}
	if stats.Accepted == 0 {
		os.Exit(2)
	}
}
