package cart

import (
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
)

const dateOnly = "2006-01-02"

// DateRange is a rental period. Both bounds are either empty (undated, to be
// fixed at checkout) or normalised ISO strings: date-only or RFC3339 in UTC.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IsZero reports whether the range is undated.
func (d DateRange) IsZero() bool {
	return d.Start == "" && d.End == ""
}

// Normalize validates the range and returns it in canonical form so that
// equal periods compare equal as strings.
func (d DateRange) Normalize() (DateRange, error) {
	start := strings.TrimSpace(d.Start)
	end := strings.TrimSpace(d.End)
	if start == "" && end == "" {
		return DateRange{}, nil
	}
	if start == "" || end == "" {
		return DateRange{}, pkgerrors.New(pkgerrors.CodeValidation, "rental dates need both start and end")
	}

	startAt, startNorm, err := parseBound(start)
	if err != nil {
		return DateRange{}, err
	}
	endAt, endNorm, err := parseBound(end)
	if err != nil {
		return DateRange{}, err
	}
	if endAt.Before(startAt) {
		return DateRange{}, pkgerrors.New(pkgerrors.CodeValidation, "rental end date is before start date").
			WithDetails(map[string]any{"start": startNorm, "end": endNorm})
	}
	return DateRange{Start: startNorm, End: endNorm}, nil
}

func parseBound(value string) (time.Time, string, error) {
	if t, err := time.Parse(dateOnly, value); err == nil {
		return t, t.Format(dateOnly), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		t = t.UTC()
		return t, t.Format(time.RFC3339), nil
	}
	return time.Time{}, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid rental date "+value)
}
