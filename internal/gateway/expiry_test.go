package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"angel-trader/internal/models"
	"angel-trader/pkg/utils"
)

func ist(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, utils.IndiaLocation)
}

func TestNearestExpiryWeekly(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"monday picks same week", ist(2026, time.September, 7, 10, 0), "10SEP2026"},
		{"thursday before close stays", ist(2026, time.September, 10, 14, 0), "10SEP2026"},
		{"thursday after close rolls", ist(2026, time.September, 10, 16, 0), "17SEP2026"},
		{"friday rolls to next week", ist(2026, time.September, 11, 10, 0), "17SEP2026"},
		{"thursday at close rolls", ist(2026, time.September, 10, 15, 30), "17SEP2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestExpiry(models.Nifty, tt.now))
		})
	}
}

func TestNearestExpiryMonthly(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"early month picks last thursday", ist(2026, time.September, 2, 10, 0), "24SEP2026"},
		{"expiry day before close stays", ist(2026, time.September, 24, 11, 0), "24SEP2026"},
		{"expiry day after close rolls", ist(2026, time.September, 24, 16, 0), "29OCT2026"},
		{"after monthly expiry rolls", ist(2026, time.September, 28, 10, 0), "29OCT2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestExpiry(models.BankNifty, tt.now))
		})
	}
}

func TestNearestExpiryYearBoundary(t *testing.T) {
	// Dec 31 2026 is a Thursday; after close the weekly rolls into January.
	assert.Equal(t, "31DEC2026", NearestExpiry(models.Nifty, ist(2026, time.December, 28, 10, 0)))
	assert.Equal(t, "07JAN2027", NearestExpiry(models.Nifty, ist(2026, time.December, 31, 16, 0)))

	// The December monthly is the 31st; past it the expiry moves to January.
	assert.Equal(t, "31DEC2026", NearestExpiry(models.BankNifty, ist(2026, time.December, 15, 10, 0)))
	assert.Equal(t, "28JAN2027", NearestExpiry(models.BankNifty, ist(2026, time.December, 31, 16, 0)))
}

func TestFormatExpiry(t *testing.T) {
	assert.Equal(t, "02JAN2026", FormatExpiry(ist(2026, time.January, 2, 0, 0)))
	assert.Equal(t, "24SEP2026", FormatExpiry(ist(2026, time.September, 24, 0, 0)))
}
