package scheduler

import (
	"fmt"
	"time"

	"github.com/cardline/platform/internal/domain"
)

// tminusBands are the pre-game checkpoints in minutes before start.
var tminusBands = []int{120, 90, 60, 30}

// tminusTolerance widens each band into the closed interval
// [band-5, band] minutes before start.
const tminusToleranceMinutes = 5

// fixedWindowTimes are the daily per-sport model windows, local time.
var fixedWindowTimes = []struct{ hour, minute int }{
	{9, 0},
	{12, 0},
}

// HourlyOddsKey identifies the odds-pull bucket for the wall-clock hour.
func HourlyOddsKey(now time.Time, loc *time.Location) string {
	local := now.In(loc)
	return fmt.Sprintf("odds|hourly|%s|%02d", local.Format("2006-01-02"), local.Hour())
}

// SettleKey identifies the settlement bucket for the wall-clock hour.
func SettleKey(now time.Time, loc *time.Location) string {
	local := now.In(loc)
	return fmt.Sprintf("settle|hourly|%s|%02d", local.Format("2006-01-02"), local.Hour())
}

// FixedWindowKeys returns the due fixed-window keys for one sport.
// A window is due once today's target time has passed. Without catchup,
// it is only due within two tick periods of the target, so a restart
// does not replay stale windows.
func FixedWindowKeys(sport domain.Sport, now time.Time, loc *time.Location, catchup bool, tick time.Duration) []string {
	local := now.In(loc)
	var keys []string
	for _, w := range fixedWindowTimes {
		target := time.Date(local.Year(), local.Month(), local.Day(), w.hour, w.minute, 0, 0, loc)
		if local.Before(target) {
			continue
		}
		if !catchup && local.Sub(target) > 2*tick {
			continue
		}
		keys = append(keys, fmt.Sprintf("%s|fixed|%s|%02d%02d",
			sport, target.Format("2006-01-02"), w.hour, w.minute))
	}
	return keys
}

// TMinusKeys returns the due T-minus band keys for one game. A band is
// due iff minutes-until-start lies in [band-5, band].
func TMinusKeys(game domain.Game, now time.Time) []string {
	until := game.GameTimeUTC.Sub(now).Minutes()
	var keys []string
	for _, band := range tminusBands {
		if until >= float64(band-tminusToleranceMinutes) && until <= float64(band) {
			keys = append(keys, fmt.Sprintf("%s|tminus|%s|%d", game.Sport, game.ProviderGameID, band))
		}
	}
	return keys
}
