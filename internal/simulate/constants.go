package simulate

import "time"

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	progressEvery           = 500
)

// Runner configuration constants.
const (
	drainPollInterval    = 100 * time.Millisecond
	drainStablePolls     = 3
	percentageMultiplier = 100
	costPerPlayer        = 5
)
