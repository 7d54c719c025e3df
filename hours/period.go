package hours

import (
	"fmt"
	"regexp"
	"time"

	"github.com/icodeforyou/spotprice-go/types"
)

// PeriodLayout is the provider's "YYYYMMDDHHMM" period format.
const PeriodLayout = "200601021504"

var periodRe = regexp.MustCompile(`^\d{4}(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])([01]\d|2[0-3])[0-5]\d$`)

func IsValidPeriod(s string) bool {
	return periodRe.MatchString(s)
}

func ValidatePeriod(s string) error {
	if !IsValidPeriod(s) {
		return fmt.Errorf("%w: period %q, valid format is YYYYMMDDHHMM", types.ErrInput, s)
	}
	return nil
}

// FormatPeriod formats t in UTC, the zone the provider reads periods in.
func FormatPeriod(t time.Time) string {
	return t.UTC().Format(PeriodLayout)
}

// ParsePeriod parses a validated period string as a UTC instant.
func ParsePeriod(s string) (time.Time, error) {
	if err := ValidatePeriod(s); err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(PeriodLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: period %q: %v", types.ErrInput, s, err)
	}
	return t, nil
}

// PeriodEnd is now plus two days, floored to midnight.
func PeriodEnd(now time.Time) string {
	return now.UTC().AddDate(0, 0, 2).Format("20060102") + "0000"
}
