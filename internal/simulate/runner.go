package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/pkg/logger"
)

// ErrDrainTimeout is returned when the update queue does not empty in time.
var ErrDrainTimeout = errors.New("update queue did not drain")

// Run plays one match end to end against the service and verifies the
// settlement it produces.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	logger.Get().Info(ctx, "starting penaltyhub match simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("guests", cfg.Guests),
		logger.Int("updates", cfg.Updates),
		logger.Int("workers", cfg.Workers),
		logger.Float64("duplicateRate", cfg.DuplicateRate),
		logger.String("allocation", string(cfg.Allocation)))

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	m, err := setupMatch(ctx, cfg, client)
	if err != nil {
		return stats, fmt.Errorf("match setup failed: %w", err)
	}
	stats.MatchID = m.ID
	logger.Get().Info(ctx, "match started", logger.String("matchID", m.ID), logger.Int("roster", len(m.Participants)))

	updates := generateUpdates(ctx, cfg, m.Participants, stats)
	submitUpdates(ctx, cfg, client, m.ID, updates, stats)

	if err := waitForDrain(ctx, cfg, client); err != nil {
		return stats, err
	}

	closed, err := finishMatch(ctx, client, m)
	if err != nil {
		return stats, fmt.Errorf("closing match failed: %w", err)
	}
	stats.Transactions = len(closed.Transactions)
	for _, p := range closed.Match.Participants {
		stats.TotalFines += p.TotalFine
	}

	if err := verifySettlement(closed); err != nil {
		return stats, fmt.Errorf("settlement verification failed: %w", err)
	}
	logger.Get().Info(ctx, "settlement verified", logger.Int("transactions", stats.Transactions))

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	_, err := client.Do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
	return err
}

// setupMatch creates a match, registers the players and starts it.
func setupMatch(ctx context.Context, cfg *Config, client *HTTPClient) (model.Match, error) {
	roster := cfg.Players + cfg.Guests
	draft := map[string]any{
		"name":             "Simulated match " + time.Now().UTC().Format(time.DateTime),
		"time":             arrivalClock(kickoffMinutes),
		"location":         "Simulator",
		"total_cost":       roster * costPerPlayer,
		"max_participants": roster,
		"organizer":        playerName(0),
		"fine_allocation":  cfg.Allocation,
	}
	var m model.Match
	if _, err := client.Do(ctx, http.MethodPost, "/matches", draft, &m, http.StatusCreated); err != nil {
		return m, err
	}
	base := "/matches/" + m.ID

	for i := 0; i < cfg.Players; i++ {
		reg := model.Registration{
			UserID:    playerID(i),
			Name:      playerName(i),
			Timestamp: time.Now().UnixMilli(),
		}
		if i == 0 {
			reg.Guests = cfg.Guests
		}
		if _, err := client.Do(ctx, http.MethodPost, base+"/registrations", reg, nil, http.StatusOK); err != nil {
			return m, err
		}
	}

	_, err := client.Do(ctx, http.MethodPost, base+"/start", nil, &m, http.StatusOK)
	return m, err
}

// waitForDrain polls /stats until the queue has been empty for a few polls
// in a row.
func waitForDrain(ctx context.Context, cfg *Config, client *HTTPClient) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.DrainTimeout)
	defer cancel()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	empty := 0
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w within %s", ErrDrainTimeout, cfg.DrainTimeout)
		case <-ticker.C:
			var st map[string]any
			if _, err := client.Do(ctx, http.MethodGet, "/stats", nil, &st, http.StatusOK); err != nil {
				return err
			}
			if n, ok := st["queueLength"].(float64); ok && n == 0 {
				empty++
			} else {
				empty = 0
			}
			if empty >= drainStablePolls {
				return nil
			}
		}
	}
}

// finishMatch balances teams, records a score, collects every confirmation
// and vote, then closes the match.
func finishMatch(ctx context.Context, client *HTTPClient, m model.Match) (CloseResponse, error) {
	var closed CloseResponse
	base := "/matches/" + m.ID

	steps := []struct {
		path string
		body any
	}{
		{base + "/teams", nil},
		{base + "/score", map[string]int{"score_a": randInt(6), "score_b": randInt(6)}},
		{base + "/voting", nil},
	}
	for _, s := range steps {
		if _, err := client.Do(ctx, http.MethodPost, s.path, s.body, nil, http.StatusOK); err != nil {
			return closed, err
		}
	}

	var names []string
	for _, p := range m.Participants {
		if p.UserID != "" {
			names = append(names, p.Name)
		}
	}
	for _, p := range m.Participants {
		if p.UserID == "" {
			continue
		}
		if _, err := client.Do(ctx, http.MethodPost, base+"/confirmations", map[string]string{"user_id": p.UserID}, nil, http.StatusOK); err != nil {
			return closed, err
		}
		vote := model.Vote{
			VoterID: p.UserID,
			MVPID:   names[randInt(len(names))],
			LVPID:   names[randInt(len(names))],
		}
		if _, err := client.Do(ctx, http.MethodPost, base+"/votes", vote, nil, http.StatusOK); err != nil {
			return closed, err
		}
	}

	_, err := client.Do(ctx, http.MethodPost, base+"/close", nil, &closed, http.StatusOK)
	return closed, err
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, updatesPerSecond float64
	if stats.UpdatesSubmitted > 0 {
		acceptRate = float64(stats.UpdatesAccepted) / float64(stats.UpdatesSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		updatesPerSecond = float64(stats.UpdatesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.String("matchID", stats.MatchID),
		logger.Int("updatesGenerated", stats.UpdatesGenerated),
		logger.Int("updatesSubmitted", stats.UpdatesSubmitted),
		logger.Int("updatesAccepted", stats.UpdatesAccepted),
		logger.Int("updatesDuplicate", stats.UpdatesDuplicate),
		logger.Int("updatesRejected", stats.UpdatesRejected),
		logger.Int("updatesFailed", stats.UpdatesFailed),
		logger.Int("transactions", stats.Transactions),
		logger.Float64("totalFines", stats.TotalFines),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("updatesPerSecond", updatesPerSecond))
}

func playerID(i int) string   { return fmt.Sprintf("sim-%03d", i+1) }
func playerName(i int) string { return fmt.Sprintf("Player %03d", i+1) }
