package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/penaltyhub/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging initializes the logger and mirrors its output to logFile. If
// logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) (io.Closer, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`PenaltyHub Match Simulator
==========================

Plays one match against a running PenaltyHub service: registers players,
fires concurrent participant updates (some of them duplicates), votes,
closes the match and checks the settlement.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -players int
        Number of registered players (default 10)
  -guests int
        Guests brought by the first player (default 2)
  -updates int
        Number of participant updates to submit (default 5000)
  -duplicates float
        Share of updates resent with the same id (default 0.05)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -allocation string
        Fine allocation: split or fund (default "split")
  -timeout duration
        HTTP request timeout (default 30s)
  -drain duration
        How long to wait for queued updates to apply (default 1m)
  -log string
        Log file (default: simulate_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/simulate -players 14 -updates 20000 -allocation fund
  go run ./cmd/simulate -verbose -url http://localhost:8080
`)
}
