package model

import (
	"fmt"
	"math"
	"time"
)

// DayLayout is the text form of a calendar day.
const DayLayout = "2006-01-02"

// MaxBottles is the largest bottle count a delivery record can hold. It is the
// range of the 32-bit integer column the SQL store keeps it in.
const MaxBottles = math.MaxInt32

// Delivery represents a delivery event in the database
type Delivery struct {
	CustomerID       int64     `db:"customer_id" json:"customer_id"`
	Date             time.Time `db:"date" json:"date"`
	BottlesDelivered int       `db:"bottles_delivered" json:"bottles_delivered"`
}

// DayOf truncates t to its calendar day. The result is midnight UTC carrying
// the year, month and day t has in its own location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayRange returns the half-open interval [start, end) covering the calendar day of t.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := DayOf(t)
	return start, start.AddDate(0, 0, 1)
}

// ParseDay parses a YYYY-MM-DD string into a calendar day
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDay renders the calendar day of t as YYYY-MM-DD
func FormatDay(t time.Time) string {
	return DayOf(t).Format(DayLayout)
}
