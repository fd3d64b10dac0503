package config

import (
	"regexp"
	"strings"

	"github.com/valeger/automl/internal/errs"
)

// Cron field patterns, replicated field-for-field from the validator this
// schema was distilled from. The month field intentionally accepts 0-12
// instead of the standard 1-12: this is the original's own quirk, not a
// platform requirement, and is preserved rather than "fixed" (see
// DESIGN.md's Open Question decision).
var (
	reCronMinute  = regexp.MustCompile(`^([1-5]?[0-9](,|$))+|^(\*|[1-5]?[0-9]-[1-5]?[0-9])(/[1-5]?[0-9]$|$)`)
	reCronHour    = regexp.MustCompile(`^((2[0-3]|1?[0-9])(,|$))+|^(\*|(2[0-3]|1?[0-9])-(2[0-3]|1?[0-9]))(/(2[0-3]|1?[0-9])$|$)`)
	reCronDay     = regexp.MustCompile(`^((3[0-1]|[1-2]?[0-9])(,|$))+|^(\*|(3[0-1]|[1-2]?[0-9])-(3[0-1]|[1-2]?[0-9]))(/(3[0-1]|[1-2]?[0-9])$|$)`)
	reCronMonth   = regexp.MustCompile(`^((1[0-2]|[0-9])(,|$))+|^(\*|(1[0-2]|[0-9])-(1[0-2]|[0-9]))(/(1[0-2]|[0-9])$|$)`)
	reCronWeekday = regexp.MustCompile(`^([0-6](,|$))+|^(\*|[0-6]-[0-6])(/[0-6]$|$)`)
)

// ValidateSchedule checks schedule against the five-field cron grammar used
// by the driver's CronJob. It returns a *errs.Error (KindValue) describing
// exactly which field failed.
func ValidateSchedule(schedule string) error {
	fields := strings.Split(schedule, " ")
	if len(fields) != 5 {
		return errs.Value("incorrect schedule (cron) schema: %s. must have 5 schedule fields", schedule)
	}

	checks := []struct {
		name string
		re   *regexp.Regexp
	}{
		{"minute", reCronMinute},
		{"hour", reCronHour},
		{"day", reCronDay},
		{"month", reCronMonth},
		{"weekday", reCronWeekday},
	}
	for i, check := range checks {
		if !fullMatch(check.re, fields[i]) {
			return errs.Value("incorrect schedule (cron) schema: %s. incorrect %s pattern: %s",
				schedule, check.name, fields[i])
		}
	}
	return nil
}

// fullMatch emulates Python re.fullmatch: the whole field must match, not
// just a prefix.
func fullMatch(re *regexp.Regexp, field string) bool {
	loc := re.FindStringIndex(field)
	return loc != nil && loc[0] == 0 && loc[1] == len(field)
}
