package models

import (
	"fmt"
	"time"
)

// Quarter is a three month calendar period.
type Quarter struct {
	Year   int
	Number int
}

// QuarterOf returns the quarter containing t.
func QuarterOf(t time.Time) Quarter {
	return Quarter{Year: t.Year(), Number: (int(t.Month())-1)/3 + 1}
}

// YearShort returns the last two digits of the year.
func (q Quarter) YearShort() string {
	return fmt.Sprintf("%02d", q.Year%100)
}

// Tag returns the YYQn token used in file names.
func (q Quarter) Tag() string {
	return fmt.Sprintf("%sQ%d", q.YearShort(), q.Number)
}

// String returns e.g. "2024 Q1".
func (q Quarter) String() string {
	return fmt.Sprintf("%d Q%d", q.Year, q.Number)
}

// Before orders quarters chronologically.
func (q Quarter) Before(o Quarter) bool {
	if q.Year != o.Year {
		return q.Year < o.Year
	}

	return q.Number < o.Number
}

var quarterBounds = map[int][2]string{
	1: {"01.01", "03.31"},
	2: {"04.01", "06.30"},
	3: {"07.01", "09.30"},
	4: {"10.01", "12.31"},
}

// QuarterDates returns the first and last day of a quarter as YYYY.MM.DD.
func QuarterDates(year, quarter int) (string, string, error) {
	b, ok := quarterBounds[quarter]
	if !ok {
		return "", "", fmt.Errorf("%w: %d", ErrInvalidQuarter, quarter)
	}

	return fmt.Sprintf("%d.%s", year, b[0]), fmt.Sprintf("%d.%s", year, b[1]), nil
}
