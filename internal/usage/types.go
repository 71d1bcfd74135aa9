package usage

import (
	"time"
)

// DailyUsage is one row of analysis_usage_daily. Only counts are stored.
type DailyUsage struct {
	Date      time.Time `json:"date"`
	Analyses  int       `json:"analyses"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Totals struct {
	Analyses    int     `json:"analyses"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type Summary struct {
	From   string       `json:"from"`
	To     string       `json:"to"`
	Totals Totals       `json:"totals"`
	Days   []DailyUsage `json:"days"`
}
