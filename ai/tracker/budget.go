package tracker

import (
	"time"

	"github.com/ledgewood/folio/errors"
)

// BudgetLimits are spend ceilings in USD checked before a generation run.
// A zero limit disables that window. Daily covers the current calendar day,
// weekly the trailing 7 days, monthly the current calendar month.
type BudgetLimits struct {
	DailyUSD   float64
	WeeklyUSD  float64
	MonthlyUSD float64
}

func (l BudgetLimits) any() bool {
	return l.DailyUSD > 0 || l.WeeklyUSD > 0 || l.MonthlyUSD > 0
}

// CheckBudgets returns errors.ErrBudgetExceeded when recorded spend has
// reached any configured limit. A run that would cross a ceiling is refused
// before the first model request, not mid-generation.
func (t *UsageTracker) CheckBudgets(now time.Time, limits BudgetLimits) error {
	if !limits.any() {
		return nil
	}

	windows := []struct {
		name  string
		since time.Time
		limit float64
	}{
		{"daily", startOfDay(now), limits.DailyUSD},
		{"weekly", now.AddDate(0, 0, -7), limits.WeeklyUSD},
		{"monthly", startOfMonth(now), limits.MonthlyUSD},
	}

	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		spent, err := t.costSince(w.since)
		if err != nil {
			return err
		}
		if spent >= w.limit {
			return errors.Wrapf(errors.ErrBudgetExceeded,
				"%s spend $%.4f has reached the $%.2f limit", w.name, spent, w.limit)
		}
	}
	return nil
}

func (t *UsageTracker) costSince(since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(COALESCE(cost, 0)), 0)
		FROM ai_model_usage
		WHERE request_timestamp >= ?`

	var cost float64
	if err := t.db.QueryRow(query, since).Scan(&cost); err != nil {
		return 0, errors.Wrap(err, "summing recorded spend")
	}
	return cost, nil
}

func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
