package lancamento

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/valmeidavr/cpsi-api/internal/domain/agenda"
	"github.com/valmeidavr/cpsi-api/internal/platform/db"
)

// Coordinator reacts to booking transitions by maintaining the linked ledger
// entry. It implements agenda.BillingNotifier; errors it returns are surfaced
// as warnings by the caller, never as booking failures.
type Coordinator struct {
	repo         Repository
	log          zerolog.Logger
	defaultForma string
	retryCfg     db.RetryConfig
	now          func() time.Time
}

func NewCoordinator(repo Repository, defaultForma string, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		repo:         repo,
		log:          log,
		defaultForma: defaultForma,
		retryCfg:     db.DefaultRetryConfig(),
		now:          time.Now,
	}
}

// WithClock overrides the coordinator clock.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

var _ agenda.BillingNotifier = (*Coordinator)(nil)

// OnBooked creates the pending ledger entry for a fresh booking. The value
// starts at zero; the front desk fills it in when the payment is registered.
func (c *Coordinator) OnBooked(ctx context.Context, ev agenda.BookingEvent) error {
	l := &Lancamento{
		ID:              uuid.New(),
		Valor:           0,
		Descricao:       bookingDescricao(ev),
		DataLancamento:  c.now().UTC(),
		Tipo:            TipoEntrada,
		StatusPagamento: PagamentoPendente,
		AgendaID:        &ev.AgendaID,
		Status:          StatusAtivo,
	}
	if c.defaultForma != "" {
		forma := c.defaultForma
		l.FormaPagamento = &forma
	}
	if ev.ClienteID != uuid.Nil {
		clienteID := ev.ClienteID
		l.ClienteID = &clienteID
	}
	if ev.ActingUserID != "" {
		usuario := ev.ActingUserID
		l.UsuarioID = &usuario
	}

	err := db.WithRetry(ctx, c.retryCfg, func(ctx context.Context) error {
		return c.repo.Create(ctx, l)
	})
	if err != nil {
		return fmt.Errorf("create ledger entry for agenda %s: %w", ev.AgendaID, err)
	}
	c.log.Info().
		Str("lancamento_id", l.ID.String()).
		Str("agenda_id", ev.AgendaID.String()).
		Msg("ledger entry created for booking")
	return nil
}

// OnFreed removes the ledger entry linked to a freed appointment. A missing
// entry is not an error: the booking may have predated billing integration or
// the entry may have been removed manually.
func (c *Coordinator) OnFreed(ctx context.Context, agendaID uuid.UUID) error {
	err := db.WithRetry(ctx, c.retryCfg, func(ctx context.Context) error {
		return c.repo.DeleteByAgendaID(ctx, agendaID)
	})
	if errors.Is(err, ErrNotFound) {
		c.log.Debug().Str("agenda_id", agendaID.String()).Msg("no ledger entry to remove")
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove ledger entry for agenda %s: %w", agendaID, err)
	}
	c.log.Info().Str("agenda_id", agendaID.String()).Msg("ledger entry removed for freed slot")
	return nil
}

func bookingDescricao(ev agenda.BookingEvent) string {
	when := ev.DtAgenda.UTC().Format("02/01/2006 15:04")
	if ev.ClienteNome != "" {
		return fmt.Sprintf("Atendimento %s - %s", when, ev.ClienteNome)
	}
	return fmt.Sprintf("Atendimento %s", when)
}
