package transcript

import (
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ParseDeadline turns a raw deadline phrase into a concrete date
// relative to asOf. All arithmetic is deterministic; the returned date
// has day precision in UTC. The second return is false when the phrase
// cannot be parsed — callers keep the task and record a diagnostic
// instead of guessing.
func ParseDeadline(phrase string, asOf time.Time) (time.Time, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	p = strings.Trim(p, ".,!?;:")
	for _, prefix := range []string{"by ", "due ", "on ", "before ", "until ", "the "} {
		p = strings.TrimPrefix(p, prefix)
	}
	p = strings.Join(strings.Fields(p), " ")
	if p == "" {
		return time.Time{}, false
	}

	base := datePart(asOf)

	switch p {
	case "today", "tonight", "eod", "end of day", "end of the day":
		return base, true
	case "tomorrow":
		return base.AddDate(0, 0, 1), true
	case "day after tomorrow":
		return base.AddDate(0, 0, 2), true
	case "end of week", "end of the week", "eow":
		return nextWeekdayInclusive(base, time.Friday), true
	case "end of month", "end of the month":
		firstOfNext := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return firstOfNext.AddDate(0, 0, -1), true
	case "next week":
		return base.AddDate(0, 0, 7), true
	case "in a day":
		return base.AddDate(0, 0, 1), true
	case "in a week":
		return base.AddDate(0, 0, 7), true
	}

	// ISO date.
	if t, err := time.Parse("2006-01-02", p); err == nil {
		return datePart(t), true
	}

	fields := strings.Fields(p)

	// "next friday" / "this friday" / bare "friday".
	if len(fields) == 1 {
		if wd, ok := weekdays[fields[0]]; ok {
			return nextWeekdayExclusive(base, wd), true
		}
	}
	if len(fields) == 2 {
		wd, ok := weekdays[fields[1]]
		if ok {
			switch fields[0] {
			case "next":
				return nextWeekdayExclusive(base, wd), true
			case "this":
				return nextWeekdayInclusive(base, wd), true
			}
		}
	}

	// "in N days" / "in N weeks".
	if len(fields) == 3 && fields[0] == "in" {
		n, err := strconv.Atoi(fields[1])
		if err == nil && n > 0 {
			switch fields[2] {
			case "day", "days":
				return base.AddDate(0, 0, n), true
			case "week", "weeks":
				return base.AddDate(0, 0, 7*n), true
			}
		}
	}

	// "march 8", "mar 8th", "march 8 2024", "8 march", "8th of march".
	if t, ok := parseMonthDay(fields, base); ok {
		return t, true
	}

	return time.Time{}, false
}

func parseMonthDay(fields []string, base time.Time) (time.Time, bool) {
	// Drop a connecting "of" ("8th of march").
	cleaned := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "of" {
			continue
		}
		cleaned = append(cleaned, f)
	}
	if len(cleaned) < 2 || len(cleaned) > 3 {
		return time.Time{}, false
	}

	var month time.Month
	var day, year int
	haveMonth := false
	haveDay := false

	for _, f := range cleaned {
		if m, ok := months[f]; ok && !haveMonth {
			month = m
			haveMonth = true
			continue
		}
		n, ok := parseOrdinal(f)
		if !ok {
			return time.Time{}, false
		}
		if n >= 1000 {
			year = n
			continue
		}
		if haveDay {
			return time.Time{}, false
		}
		day = n
		haveDay = true
	}
	if !haveMonth || !haveDay || day < 1 || day > 31 {
		return time.Time{}, false
	}

	if year == 0 {
		year = base.Year()
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		// A bare month-day in the past refers to next year.
		if t.Before(base) {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func parseOrdinal(s string) (int, bool) {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func datePart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// nextWeekdayExclusive returns the next occurrence of wd strictly after
// base: "next friday" on a Monday is that same week's Friday, on a
// Friday it is a week out.
func nextWeekdayExclusive(base time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(base.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return base.AddDate(0, 0, days)
}

func nextWeekdayInclusive(base time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(base.Weekday()) + 7) % 7
	return base.AddDate(0, 0, days)
}
