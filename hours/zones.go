package hours

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DisplayLayout is the "dd.mm.yyyy HH:MM" format of the public feed.
const DisplayLayout = "02.01.2006 15:04"

var (
	marketLoc  *time.Location
	displayLoc *time.Location
)

func init() {
	var err error
	marketLoc, err = time.LoadLocation("CET")
	if err != nil {
		panic(fmt.Sprintf("failed to load CET location: %v", err))
	}
	displayLoc, err = time.LoadLocation("Europe/Helsinki")
	if err != nil {
		panic(fmt.Sprintf("failed to load Helsinki location: %v", err))
	}
}

func SetMarketTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %v", timezone, err)
	}
	marketLoc = loc
	return nil
}

func SetDisplayTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %v", timezone, err)
	}
	displayLoc = loc
	return nil
}

func MarketLocation() *time.Location {
	return marketLoc
}

func DisplayLocation() *time.Location {
	return displayLoc
}

func InMarket(t time.Time) time.Time {
	return t.In(marketLoc)
}

func InDisplay(t time.Time) time.Time {
	return t.In(displayLoc)
}

func FormatDisplay(t time.Time) string {
	return t.In(displayLoc).Format(DisplayLayout)
}

// ParseDisplay parses a "dd.mm.yyyy HH:MM" string as display zone wall clock.
func ParseDisplay(s string) (time.Time, error) {
	return time.ParseInLocation(DisplayLayout, s, displayLoc)
}

// MarketDates lists the market zone dates overlapping [from, to).
func MarketDates(from, to time.Time) []string {
	if !from.Before(to) {
		return nil
	}
	first := InMarket(from)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, first.Location())
	dates := make([]string, 0, 3)
	for day.Before(to) {
		dates = append(dates, day.Format(dateLayout))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}
