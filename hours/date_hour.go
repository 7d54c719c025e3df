package hours

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	hourLayout = "2006-01-02 15"
)

// DateHour is a wall clock hour in the display zone.
type DateHour struct {
	Date string
	Hour uint8
}

func (dh DateHour) String() string {
	return fmt.Sprintf("%s %02d", dh.Date, dh.Hour)
}

// Time returns the instant the hour starts at.
func (dh DateHour) Time() (time.Time, error) {
	return time.ParseInLocation(hourLayout, dh.String(), displayLoc)
}

func (dh DateHour) Compare(other DateHour) int {
	if dh == other {
		return 0
	}
	if dh.Date < other.Date {
		return -1
	}
	if dh.Date > other.Date {
		return 1
	}
	if dh.Hour < other.Hour {
		return -1
	}
	return 1
}

func (dh DateHour) IsZero() bool {
	return dh.Date == "" && dh.Hour == 0
}

func FromTime(t time.Time) DateHour {
	if t.IsZero() {
		return DateHour{}
	}
	t = t.In(displayLoc)
	return DateHour{
		Date: t.Format(dateLayout),
		Hour: uint8(t.Hour()),
	}
}

func FromNow() DateHour {
	return FromTime(time.Now())
}

// FromDisplay converts a "dd.mm.yyyy HH:MM" feed timestamp.
func FromDisplay(s string) (DateHour, error) {
	t, err := ParseDisplay(s)
	if err != nil {
		return DateHour{}, err
	}
	return FromTime(t), nil
}

// NextDate returns the display zone date following date.
func NextDate(date string) string {
	t, err := time.ParseInLocation(dateLayout, date, displayLoc)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(dateLayout)
}

// HoursInDate is 24, or 23/25 on daylight saving transition days.
func HoursInDate(date string) int {
	start, err := time.ParseInLocation(dateLayout, date, displayLoc)
	if err != nil {
		return 0
	}
	end := start.AddDate(0, 0, 1)
	return int(end.Sub(start) / time.Hour)
}
