package lancamento

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, l *Lancamento) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lancamento, error)
	Update(ctx context.Context, l *Lancamento) error
	// FindByAgendaID returns the ACTIVE entry linked to an appointment, or
	// ErrNotFound when none exists.
	FindByAgendaID(ctx context.Context, agendaID uuid.UUID) (*Lancamento, error)
	// DeleteByAgendaID removes the entry linked to an appointment. Returns
	// ErrNotFound when there is nothing to remove.
	DeleteByAgendaID(ctx context.Context, agendaID uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Lancamento, int, error)
}
