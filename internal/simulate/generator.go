package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/pkg/logger"
)

const (
	kickoffMinutes   = 20 * 60
	earliestArrival  = -10
	latestArrival    = 45
	maxCount         = 4
	rateResolution   = 1_000_000
	updateKindsCount = 8
)

// Update kinds.
const (
	kindArrival = iota
	kindGoals
	kindNutmegs
	kindPostHits
	kindYellowCards
	kindOwnGoals
	kindForgotKit
	kindMVP
)

// randInt returns a uniform integer in [0, n) using crypto/rand.
func randInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// randChance reports true with probability p.
func randChance(p float64) bool {
	if p <= 0 {
		return false
	}
	return float64(randInt(rateResolution)) < p*rateResolution
}

// generateUpdates builds cfg.Updates updates spread across the roster. A
// share of them reuses an earlier update verbatim so the service sees
// duplicates.
func generateUpdates(ctx context.Context, cfg *Config, roster []model.Participant, stats *Stats) []Update {
	logger.Get().Info(ctx, "generating participant updates",
		logger.Int("updates", cfg.Updates),
		logger.Int("roster", len(roster)))

	updates := make([]Update, 0, cfg.Updates)
	if len(roster) == 0 {
		return updates
	}
	for i := 0; i < cfg.Updates; i++ {
		if i > 0 && randChance(cfg.DuplicateRate) {
			updates = append(updates, updates[randInt(i)])
			continue
		}
		updates = append(updates, randomUpdate(roster[randInt(len(roster))].ID))
	}

	stats.UpdatesGenerated = len(updates)
	return updates
}

// randomUpdate changes one field of participant id to a random value.
func randomUpdate(id string) Update {
	u := Update{
		UpdateID:      uuid.NewString(),
		ParticipantID: id,
		TS:            time.Now().UTC().Format(time.RFC3339),
	}
	n := randInt(maxCount + 1)
	switch randInt(updateKindsCount) {
	case kindArrival:
		at := arrivalClock(kickoffMinutes + earliestArrival + randInt(latestArrival-earliestArrival+1))
		u.ArrivalTime = &at
	case kindGoals:
		u.Goals = &n
	case kindNutmegs:
		u.Nutmegs = &n
	case kindPostHits:
		u.PostHits = &n
	case kindYellowCards:
		y := n % 3
		u.YellowCards = &y
	case kindOwnGoals:
		o := n % 2
		u.OwnGoals = &o
	case kindForgotKit:
		b := randChance(0.5)
		u.ForgotKit = &b
	default:
		b := randChance(0.5)
		u.IsMVP = &b
	}
	return u
}

func arrivalClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", (minutes/60)%24, minutes%60)
}
