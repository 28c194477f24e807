package agenda

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GenerateSlots returns the candidate slot instants an expediente produces for
// a target calendar date, ordered ascending and spaced IntervaloMinutos apart
// from HInicio (inclusive) to HFinal (exclusive). Dates outside the
// expediente's range or on a different weekday yield an empty slice. An end
// time at or before the start time yields an empty slice as well; only a
// non-positive interval or a malformed time string is an error.
//
// The function is pure: same inputs, same output, no I/O.
func GenerateSlots(e *Expediente, date time.Time) ([]time.Time, error) {
	if e.IntervaloMinutos <= 0 {
		return nil, validationErr("intervalo_minutos", "must be positive")
	}

	startMin, err := parseHoraMinuto(e.HInicio)
	if err != nil {
		return nil, validationErr("hinicio", err.Error())
	}
	endMin, err := parseHoraMinuto(e.HFinal)
	if err != nil {
		return nil, validationErr("hfinal", err.Error())
	}

	day := dateOnly(date.UTC())
	if day.Before(dateOnly(e.DtInicio.UTC())) || day.After(dateOnly(e.DtFinal.UTC())) {
		return nil, nil
	}
	if int(day.Weekday()) != e.Semana {
		return nil, nil
	}

	var slots []time.Time
	for m := startMin; m < endMin; m += e.IntervaloMinutos {
		slots = append(slots, day.Add(time.Duration(m)*time.Minute))
	}
	return slots, nil
}

// CoversDate reports whether the expediente generates slots on the given date.
func (e *Expediente) CoversDate(date time.Time) bool {
	day := dateOnly(date.UTC())
	if day.Before(dateOnly(e.DtInicio.UTC())) || day.After(dateOnly(e.DtFinal.UTC())) {
		return false
	}
	return int(day.Weekday()) == e.Semana
}

// parseHoraMinuto parses an "HH:MM" time of day into minutes since midnight.
func parseHoraMinuto(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
