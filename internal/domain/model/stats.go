package model

// UserStats is derived from match history and the ledger. Never persisted.
type UserStats struct {
	Name                string  `json:"name"`
	Nickname            string  `json:"nickname"`
	Appearances         int     `json:"appearances"`
	TotalPaid           float64 `json:"total_paid"`
	TotalFines          float64 `json:"total_fines"`
	AttendanceRate      float64 `json:"attendance_rate"`
	WeightedFineAverage float64 `json:"weighted_fine_average"`
	ReliabilityScore    float64 `json:"reliability_score"`
	NetBalance          float64 `json:"net_balance"`
	MVPCount            int     `json:"mvp_count"`
	LVPCount            int     `json:"lvp_count"`
	TotalGoals          int     `json:"total_goals"`
	WinRate             float64 `json:"win_rate"`
	Title               string  `json:"title"`
}
