package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end date must be after start date")
)

// DateRange is a proposed swap period [start, end).
type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{StartDate: start.UTC(), EndDate: end.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.StartDate.IsZero() || dr.EndDate.IsZero() {
		return ErrInvalidRange
	}
	if !dr.EndDate.After(dr.StartDate) {
		return ErrInvalidRange
	}
	return nil
}

// Days counts started days in the range.
func (dr DateRange) Days() int {
	d := dr.EndDate.Sub(dr.StartDate)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.StartDate.Before(other.EndDate) && other.StartDate.Before(dr.EndDate)
}
