package agenda

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ExpedienteRepository interface {
	Create(ctx context.Context, e *Expediente) error
	GetByID(ctx context.Context, id uuid.UUID) (*Expediente, error)
	Update(ctx context.Context, e *Expediente) error
	// ListByAlocacao returns every expediente for the
	// (prestador, unidade, especialidade) assignment, any lifecycle state.
	ListByAlocacao(ctx context.Context, prestadorID, unidadeID, especialidadeID uuid.UUID) ([]*Expediente, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Expediente, int, error)
}

type AgendaRepository interface {
	// Create inserts a new row. Returns ErrSlotTaken when the
	// (prestador, unidade, especialidade, dtagenda) tuple already exists.
	Create(ctx context.Context, a *Agenda) error
	GetByID(ctx context.Context, id uuid.UUID) (*Agenda, error)
	Update(ctx context.Context, a *Agenda) error
	// UpdateFromSituacao applies a full-row update only if the stored row is
	// still in the given situacao. Returns false when the guard missed,
	// meaning a concurrent writer got there first.
	UpdateFromSituacao(ctx context.Context, a *Agenda, from Situacao) (bool, error)
	// ListByDay returns the assignment's rows whose dtagenda falls on the
	// given calendar date (UTC), ordered by dtagenda ascending.
	ListByDay(ctx context.Context, prestadorID, unidadeID, especialidadeID uuid.UUID, day time.Time) ([]*Agenda, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Agenda, int, error)
}

// ClienteDirectory resolves client display names for the day-schedule view.
// Client CRUD lives outside this service; this is the only touchpoint.
type ClienteDirectory interface {
	DisplayName(ctx context.Context, id uuid.UUID) (string, error)
}

// BookingEvent describes a transition that billing cares about.
type BookingEvent struct {
	AgendaID     uuid.UUID
	ClienteID    uuid.UUID
	ClienteNome  string
	DtAgenda     time.Time
	ActingUserID string
}

// BillingNotifier receives booking side effects. Implementations are
// best-effort: the caller logs failures and never fails the primary
// transition on them.
type BillingNotifier interface {
	OnBooked(ctx context.Context, ev BookingEvent) error
	OnFreed(ctx context.Context, agendaID uuid.UUID) error
}
