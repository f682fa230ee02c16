// Package decay converts heterogeneous scraped timestamps into instants and
// elapsed time into an exponential recency multiplier.
package decay

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DefaultHalfLifeDays is the elapsed time after which engagement counts half.
const DefaultHalfLifeDays = 7.0

// ErrEmptyTimestamp is returned by ParseAt for blank input.
var ErrEmptyTimestamp = errors.New("decay: empty timestamp")

// layouts are tried in order before the relative forms and dateparse.
// The first one is what the news scraper writes ("Tue, 24 Sep 2024 15:04:36 GMT+0000").
var layouts = []string{
	"Mon, 02 Jan 2006 15:04:05 GMT-0700",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Factor returns exp(-ln2/halfLife * elapsedDays) in (0,1].
// Future timestamps count as zero elapsed time. A non-positive half-life
// disables decay.
func Factor(published, now time.Time, halfLifeDays float64) float64 {
	if !(halfLifeDays > 0) {
		return 1
	}
	days := now.Sub(published).Hours() / 24
	if days <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 / halfLifeDays * days)
}

// Parser resolves timestamps against one reference instant and never fails:
// unparsable input yields Now, so the document degrades to "no elapsed time".
type Parser struct {
	Now time.Time

	// OnError, if set, observes every substitution.
	OnError func(raw string, err error)
}

// Parse returns the instant raw denotes, or p.Now if it cannot be read.
func (p Parser) Parse(raw string) time.Time {
	t, err := ParseAt(raw, p.Now)
	if err != nil {
		if p.OnError != nil {
			p.OnError(raw, err)
		}
		return p.Now
	}
	return t
}

// ParseAt is the strict parser. Relative forms ("5 hrs", "Yesterday at 10:30")
// are resolved against now. Zone-less values are read as UTC.
func ParseAt(raw string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrEmptyTimestamp
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	if t, ok := parseRelative(s, now.UTC()); ok {
		return t, nil
	}

	t, err := parseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

// parseAny guards dateparse, which has panicked on odd inputs in the past.
func parseAny(s string) (t time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dateparse: %v", r)
		}
	}()
	return dateparse.ParseIn(s, time.UTC)
}

var (
	agoRe       = regexp.MustCompile(`^(?i)(\d+)\s*(mins?|minutes?|m|hrs?|hours?|h|days?|d)(\s+ago)?$`)
	yesterdayRe = regexp.MustCompile(`^(?i)yesterday at (\d{1,2}):(\d{2})$`)
	dayMonthRe  = regexp.MustCompile(`^(\d{1,2}) ([A-Za-z]+)(?: (\d{4}))? at (\d{1,2}):(\d{2})$`)
)

// parseRelative handles the forms the Facebook scrapers copy verbatim from the
// page: "12 mins", "5 hrs", "Yesterday at 10:30", "12 September at 14:05" and
// "12 September 2024 at 14:05".
func parseRelative(s string, now time.Time) (time.Time, bool) {
	if strings.EqualFold(s, "just now") {
		return now, true
	}

	if m := agoRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := strings.ToLower(m[2])
		switch {
		case strings.HasPrefix(unit, "m"):
			return now.Add(-time.Duration(n) * time.Minute), true
		case strings.HasPrefix(unit, "h"):
			return now.Add(-time.Duration(n) * time.Hour), true
		default:
			return now.AddDate(0, 0, -n), true
		}
	}

	if m := yesterdayRe.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return time.Time{}, false
		}
		y := now.AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), hour, minute, 0, 0, time.UTC), true
	}

	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		month, ok := parseMonth(m[2])
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[1])
		hour, _ := strconv.Atoi(m[4])
		minute, _ := strconv.Atoi(m[5])
		if day < 1 || day > 31 || hour > 23 || minute > 59 {
			return time.Time{}, false
		}
		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), true
		}
		t := time.Date(now.Year(), month, day, hour, minute, 0, 0, time.UTC)
		if t.After(now) {
			t = t.AddDate(-1, 0, 0)
		}
		return t, true
	}

	return time.Time{}, false
}

func parseMonth(name string) (time.Month, bool) {
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, name); err == nil {
			return t.Month(), true
		}
	}
	return 0, false
}
