package cronspec

import (
	"time"

	"github.com/robfig/cron/v3"
)

// nextParser accepts the same shapes Parse does (optional leading seconds
// field) and is used only to project next-run times for display.
var nextParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// NextRun calculates the next time after from at which expr fires.
func NextRun(expr string, from time.Time) (time.Time, error) {
	if err := Validate(expr); err != nil {
		return time.Time{}, err
	}
	sched, err := nextParser.Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
