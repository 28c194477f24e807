package agenda

import (
	"sort"
	"time"
)

// pickExpediente selects the expediente that serves a date when more than one
// covers it. Shift overlap is not rejected at creation time, so the most
// recently created covering shift wins; ties fall back to id ordering to stay
// deterministic.
func pickExpediente(expedientes []*Expediente, date time.Time) *Expediente {
	var picked *Expediente
	for _, e := range expedientes {
		if e.Situacao != ExpedienteAtivo || !e.CoversDate(date) {
			continue
		}
		if picked == nil {
			picked = e
			continue
		}
		if e.CreatedAt.After(picked.CreatedAt) {
			picked = e
		} else if e.CreatedAt.Equal(picked.CreatedAt) && e.ID.String() > picked.ID.String() {
			picked = e
		}
	}
	return picked
}

// mergeDaySchedule classifies each candidate slot against the day's existing
// appointment rows. Matching is by exact instant at minute precision in UTC.
// Slots with no matching row come back LIVRE with no occupant. The result is
// ordered by time regardless of the input row order.
func mergeDaySchedule(slots []time.Time, rows []*Agenda, names map[string]string) []ScheduleEntry {
	sorted := make([]*Agenda, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DtAgenda.Before(sorted[j].DtAgenda)
	})

	byMinute := make(map[int64]*Agenda, len(sorted))
	for _, a := range sorted {
		key := a.DtAgenda.UTC().Truncate(time.Minute).Unix()
		if _, exists := byMinute[key]; !exists {
			byMinute[key] = a
		}
	}

	entries := make([]ScheduleEntry, 0, len(slots))
	for _, slot := range slots {
		key := slot.UTC().Truncate(time.Minute).Unix()
		if a, ok := byMinute[key]; ok {
			entry := ScheduleEntry{
				Horario:  slot,
				Situacao: a.Situacao,
				Agenda:   a,
			}
			if a.ClienteID != nil {
				if name, ok := names[a.ClienteID.String()]; ok && name != "" {
					entry.Ocupante = &name
				}
			}
			entries = append(entries, entry)
			continue
		}
		entries = append(entries, ScheduleEntry{
			Horario:  slot,
			Situacao: SituacaoLivre,
		})
	}
	return entries
}
