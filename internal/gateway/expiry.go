package gateway

import (
	"strings"
	"time"

	"angel-trader/internal/models"
	"angel-trader/pkg/utils"
)

// Exchange expiry rules: NIFTY carries weekly contracts expiring each
// Thursday; BANKNIFTY carries monthly contracts expiring on the last
// Thursday of the month. Expiry trading stops at the 15:30 close.

// NearestExpiry returns the expiry used for a symbol's chain, formatted
// the way the feed expects (e.g. 02JAN2026).
func NearestExpiry(symbol models.Symbol, now time.Time) string {
	now = now.In(utils.IndiaLocation)

	var expiry time.Time
	switch symbol {
	case models.BankNifty:
		expiry = monthlyExpiry(now)
	default:
		expiry = weeklyExpiry(now)
	}
	return FormatExpiry(expiry)
}

// FormatExpiry renders an expiry date in the feed's DDMONYYYY form.
func FormatExpiry(t time.Time) string {
	return strings.ToUpper(t.Format("02Jan2006"))
}

// weeklyExpiry returns the next Thursday, rolling a week forward when the
// current Thursday's session has already closed.
func weeklyExpiry(now time.Time) time.Time {
	days := (int(time.Thursday) - int(now.Weekday()) + 7) % 7
	if days == 0 && pastClose(now) {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

// monthlyExpiry returns the last Thursday of the current month, or of the
// next month when it has already passed.
func monthlyExpiry(now time.Time) time.Time {
	expiry := lastThursday(now.Year(), now.Month(), now.Location())
	if expiry.Before(truncateDay(now)) || (sameDay(expiry, now) && pastClose(now)) {
		next := now.AddDate(0, 1, 0)
		expiry = lastThursday(next.Year(), next.Month(), next.Location())
	}
	return expiry
}

func lastThursday(year int, month time.Month, loc *time.Location) time.Time {
	// Last day of month, then walk back to Thursday.
	day := time.Date(year, month+1, 1, 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	for day.Weekday() != time.Thursday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func pastClose(t time.Time) bool {
	return t.Hour()*60+t.Minute() >= 15*60+30
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
