package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	expedientes ExpedienteRepository
	agendas     AgendaRepository
	clientes    ClienteDirectory
	billing     BillingNotifier
	log         zerolog.Logger
	now         func() time.Time
}

func NewService(exp ExpedienteRepository, ag AgendaRepository, cli ClienteDirectory, billing BillingNotifier, log zerolog.Logger) *Service {
	return &Service{
		expedientes: exp,
		agendas:     ag,
		clientes:    cli,
		billing:     billing,
		log:         log,
		now:         time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// -- Expediente --

// CreateExpediente persists a new shift and pre-materializes a LIVRE agenda
// row for every slot it generates. Slots already occupied by an existing row
// (for example from an overlapping shift) are skipped. Returns the number of
// rows materialized.
func (s *Service) CreateExpediente(ctx context.Context, e *Expediente) (int, error) {
	if e.PrestadorID == uuid.Nil {
		return 0, validationErr("prestador_id", "is required")
	}
	if e.UnidadeID == uuid.Nil {
		return 0, validationErr("unidade_id", "is required")
	}
	if e.EspecialidadeID == uuid.Nil {
		return 0, validationErr("especialidade_id", "is required")
	}
	if e.IntervaloMinutos <= 0 {
		return 0, validationErr("intervalo_minutos", "must be positive")
	}
	if _, err := parseHoraMinuto(e.HInicio); err != nil {
		return 0, validationErr("hinicio", err.Error())
	}
	if _, err := parseHoraMinuto(e.HFinal); err != nil {
		return 0, validationErr("hfinal", err.Error())
	}
	if e.Semana < 0 || e.Semana > 6 {
		return 0, validationErr("semana", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	if e.DtFinal.Before(e.DtInicio) {
		return 0, validationErr("dtfinal", "must not be before dtinicio")
	}
	if e.Situacao == "" {
		e.Situacao = ExpedienteAtivo
	}

	if err := s.expedientes.Create(ctx, e); err != nil {
		return 0, err
	}

	created := 0
	for day := dateOnly(e.DtInicio.UTC()); !day.After(dateOnly(e.DtFinal.UTC())); day = day.AddDate(0, 0, 1) {
		if int(day.Weekday()) != e.Semana {
			continue
		}
		slots, err := GenerateSlots(e, day)
		if err != nil {
			return created, err
		}
		for _, slot := range slots {
			a := &Agenda{
				ID:              uuid.New(),
				DtAgenda:        slot,
				Situacao:        SituacaoLivre,
				PrestadorID:     e.PrestadorID,
				UnidadeID:       e.UnidadeID,
				EspecialidadeID: e.EspecialidadeID,
				Tipo:            TipoProcedimento,
			}
			if err := s.agendas.Create(ctx, a); err != nil {
				if errors.Is(err, ErrSlotTaken) {
					continue
				}
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (s *Service) GetExpediente(ctx context.Context, id uuid.UUID) (*Expediente, error) {
	return s.expedientes.GetByID(ctx, id)
}

// EncerrarExpediente ends a shift. Existing agenda rows it generated stay
// untouched; the shift just stops serving the day-schedule view.
func (s *Service) EncerrarExpediente(ctx context.Context, id uuid.UUID) (*Expediente, error) {
	e, err := s.expedientes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Situacao == ExpedienteEncerrado {
		return e, nil
	}
	e.Situacao = ExpedienteEncerrado
	if err := s.expedientes.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) SearchExpedientes(ctx context.Context, params map[string]string, limit, offset int) ([]*Expediente, int, error) {
	return s.expedientes.Search(ctx, params, limit, offset)
}

// -- Day schedule --

// GetDaySchedule produces the merged slot view for an assignment and date:
// every candidate slot the covering expediente generates, each classified as
// LIVRE or carrying the occupying appointment. An assignment with no covering
// expediente yields an empty list, not an error.
func (s *Service) GetDaySchedule(ctx context.Context, prestadorID, unidadeID, especialidadeID uuid.UUID, date time.Time) ([]ScheduleEntry, error) {
	expedientes, err := s.expedientes.ListByAlocacao(ctx, prestadorID, unidadeID, especialidadeID)
	if err != nil {
		return nil, err
	}

	exp := pickExpediente(expedientes, date)
	if exp == nil {
		return []ScheduleEntry{}, nil
	}

	slots, err := GenerateSlots(exp, date)
	if err != nil {
		return nil, err
	}

	rows, err := s.agendas.ListByDay(ctx, prestadorID, unidadeID, especialidadeID, date)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	for _, a := range rows {
		if a.ClienteID == nil {
			continue
		}
		key := a.ClienteID.String()
		if _, ok := names[key]; ok {
			continue
		}
		name, err := s.clientes.DisplayName(ctx, *a.ClienteID)
		if err != nil {
			s.log.Warn().Err(err).Str("cliente_id", key).Msg("cliente lookup failed, omitting occupant label")
			continue
		}
		names[key] = name
	}

	return mergeDaySchedule(slots, rows, names), nil
}

// -- Agenda transitions --

func (s *Service) GetAgenda(ctx context.Context, id uuid.UUID) (*Agenda, error) {
	return s.agendas.GetByID(ctx, id)
}

func (s *Service) SearchAgendas(ctx context.Context, params map[string]string, limit, offset int) ([]*Agenda, int, error) {
	if t, ok := params["tipo"]; ok && !validTipos[Tipo(t)] {
		return nil, 0, validationErr("tipo", "must be PROCEDIMENTO or ENCAIXE")
	}
	if sit, ok := params["situacao"]; ok && !validSituacoes[Situacao(sit)] {
		return nil, 0, validationErr("situacao", "is not a valid situacao")
	}
	return s.agendas.Search(ctx, params, limit, offset)
}

// Agendar books a LIVRE slot (LIVRE -> AGENDADO). The situacao-guarded update
// makes concurrent bookings of the same slot resolve to exactly one winner;
// the loser gets ErrSlotTaken and should refresh the day schedule. The billing
// entry is created best-effort after the transition commits.
func (s *Service) Agendar(ctx context.Context, id uuid.UUID, req BookRequest) (*BookingOutcome, error) {
	if req.ClienteID == uuid.Nil {
		return nil, validationErr("cliente_id", "is required")
	}
	if req.ConvenioID == uuid.Nil {
		return nil, validationErr("convenio_id", "is required")
	}
	if req.ProcedimentoID == uuid.Nil {
		return nil, validationErr("procedimento_id", "is required")
	}

	a, err := s.agendas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Situacao != SituacaoLivre {
		return nil, ErrSlotTaken
	}

	a.Situacao = SituacaoAgendado
	a.ClienteID = &req.ClienteID
	a.ConvenioID = &req.ConvenioID
	a.ProcedimentoID = &req.ProcedimentoID
	a.TipoCliente = req.TipoCliente

	ok, err := s.agendas.UpdateFromSituacao(ctx, a, SituacaoLivre)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSlotTaken
	}

	return s.notifyBooked(ctx, a, req.ActingUserID), nil
}

// CriarEncaixe creates a walk-in appointment directly in AGENDADO, bypassing
// slot pre-materialization. The store's uniqueness index still applies.
func (s *Service) CriarEncaixe(ctx context.Context, req EncaixeRequest) (*BookingOutcome, error) {
	if req.DtAgenda.IsZero() {
		return nil, validationErr("dtagenda", "is required")
	}
	if req.PrestadorID == uuid.Nil {
		return nil, validationErr("prestador_id", "is required")
	}
	if req.UnidadeID == uuid.Nil {
		return nil, validationErr("unidade_id", "is required")
	}
	if req.EspecialidadeID == uuid.Nil {
		return nil, validationErr("especialidade_id", "is required")
	}
	if req.ClienteID == uuid.Nil {
		return nil, validationErr("cliente_id", "is required")
	}
	if req.ConvenioID == uuid.Nil {
		return nil, validationErr("convenio_id", "is required")
	}
	if req.ProcedimentoID == uuid.Nil {
		return nil, validationErr("procedimento_id", "is required")
	}

	a := &Agenda{
		ID:              uuid.New(),
		DtAgenda:        req.DtAgenda.UTC().Truncate(time.Minute),
		Situacao:        SituacaoAgendado,
		ClienteID:       &req.ClienteID,
		ConvenioID:      &req.ConvenioID,
		ProcedimentoID:  &req.ProcedimentoID,
		PrestadorID:     req.PrestadorID,
		UnidadeID:       req.UnidadeID,
		EspecialidadeID: req.EspecialidadeID,
		Tipo:            TipoEncaixe,
		TipoCliente:     req.TipoCliente,
	}
	if err := s.agendas.Create(ctx, a); err != nil {
		return nil, err
	}

	return s.notifyBooked(ctx, a, req.ActingUserID), nil
}

// Finalizar frees a booked slot (AGENDADO -> LIVRE), nulling the client,
// convenio and procedimento references and removing the linked billing entry.
// A missing billing entry is tolerated; its removal failing never fails the
// transition.
func (s *Service) Finalizar(ctx context.Context, id uuid.UUID) (*BookingOutcome, error) {
	a, err := s.agendas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Situacao != SituacaoAgendado {
		return nil, validationErr("situacao", fmt.Sprintf("cannot finalize an appointment in %s", a.Situacao))
	}

	a.Situacao = SituacaoLivre
	a.ClienteID = nil
	a.ConvenioID = nil
	a.ProcedimentoID = nil
	a.TipoCliente = nil

	ok, err := s.agendas.UpdateFromSituacao(ctx, a, SituacaoAgendado)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSlotTaken
	}

	outcome := &BookingOutcome{Agenda: a}
	if s.billing != nil {
		if err := s.billing.OnFreed(ctx, a.ID); err != nil {
			s.log.Error().Err(err).Str("agenda_id", a.ID.String()).Msg("billing entry removal failed")
			outcome.BillingWarning = "billing entry removal failed: " + err.Error()
		}
	}
	return outcome, nil
}

// AlterarSituacao applies a manual operator status change. Entering AGENDADO
// is only possible through Agendar, and returning to LIVRE only through
// Finalizar; every other target is permitted, including from LIVRE.
func (s *Service) AlterarSituacao(ctx context.Context, id uuid.UUID, nova Situacao) (*Agenda, error) {
	if !validSituacoes[nova] {
		return nil, validationErr("situacao", fmt.Sprintf("invalid situacao: %s", nova))
	}
	if nova == SituacaoAgendado {
		return nil, validationErr("situacao", "use the booking operation to set AGENDADO")
	}
	if nova == SituacaoLivre {
		return nil, validationErr("situacao", "use the finalize operation to return to LIVRE")
	}

	a, err := s.agendas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Situacao = nova
	if err := s.agendas.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Cancelar soft-deletes an appointment (situacao INATIVO). The linked billing
// entry, if any, is intentionally left in place: only Finalizar removes it.
func (s *Service) Cancelar(ctx context.Context, id uuid.UUID) (*Agenda, error) {
	a, err := s.agendas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Situacao = SituacaoInativo
	if err := s.agendas.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) notifyBooked(ctx context.Context, a *Agenda, actingUserID string) *BookingOutcome {
	outcome := &BookingOutcome{Agenda: a}
	if s.billing == nil {
		return outcome
	}

	ev := BookingEvent{
		AgendaID:     a.ID,
		DtAgenda:     a.DtAgenda,
		ActingUserID: actingUserID,
	}
	if a.ClienteID != nil {
		ev.ClienteID = *a.ClienteID
		if name, err := s.clientes.DisplayName(ctx, *a.ClienteID); err == nil {
			ev.ClienteNome = name
		}
	}

	if err := s.billing.OnBooked(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("agenda_id", a.ID.String()).Msg("billing entry creation failed")
		outcome.BillingWarning = "billing entry creation failed: " + err.Error()
	}
	return outcome
}
