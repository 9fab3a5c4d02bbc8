package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/simulate"
	"github.com/okian/penaltyhub/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers       = 10
	defaultGuests        = 2
	defaultUpdates       = 5000
	defaultDuplicateRate = 0.05
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultDrainTimeout  = time.Minute
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players    = flag.Int("players", defaultPlayers, "Number of registered players")
		guests     = flag.Int("guests", defaultGuests, "Guests brought by the first player")
		updates    = flag.Int("updates", defaultUpdates, "Number of participant updates to submit")
		duplicates = flag.Float64("duplicates", defaultDuplicateRate, "Share of updates resent with the same id")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		allocation = flag.String("allocation", string(model.AllocationSplit), "Fine allocation: split or fund")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		drain      = flag.Duration("drain", defaultDrainTimeout, "How long to wait for queued updates to apply")
		logFile    = flag.String("log", "", "Log file (default: simulate_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closer, err := simulate.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:       *baseURL,
		Players:       *players,
		Guests:        *guests,
		Updates:       *updates,
		DuplicateRate: *duplicates,
		Workers:       *workers,
		Timeout:       *timeout,
		DrainTimeout:  *drain,
		Allocation:    model.Allocation(*allocation),
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		closer.Close()
		os.Exit(1)
	}
}
