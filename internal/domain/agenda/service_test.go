package agenda

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- mocks --

type mockExpedienteRepo struct {
	expedientes map[uuid.UUID]*Expediente
	listErr     error
}

func newMockExpedienteRepo() *mockExpedienteRepo {
	return &mockExpedienteRepo{expedientes: make(map[uuid.UUID]*Expediente)}
}

func (m *mockExpedienteRepo) Create(_ context.Context, e *Expediente) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	m.expedientes[e.ID] = &cp
	return nil
}

func (m *mockExpedienteRepo) GetByID(_ context.Context, id uuid.UUID) (*Expediente, error) {
	e, ok := m.expedientes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockExpedienteRepo) Update(_ context.Context, e *Expediente) error {
	if _, ok := m.expedientes[e.ID]; !ok {
		return ErrNotFound
	}
	cp := *e
	m.expedientes[e.ID] = &cp
	return nil
}

func (m *mockExpedienteRepo) ListByAlocacao(_ context.Context, prestadorID, unidadeID, especialidadeID uuid.UUID) ([]*Expediente, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*Expediente
	for _, e := range m.expedientes {
		if e.PrestadorID == prestadorID && e.UnidadeID == unidadeID && e.EspecialidadeID == especialidadeID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockExpedienteRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*Expediente, int, error) {
	var out []*Expediente
	for _, e := range m.expedientes {
		out = append(out, e)
	}
	return out, len(out), nil
}

type slotKey struct {
	prestador     uuid.UUID
	unidade       uuid.UUID
	especialidade uuid.UUID
	minute        int64
}

type mockAgendaRepo struct {
	agendas map[uuid.UUID]*Agenda
	slots   map[slotKey]uuid.UUID
}

func newMockAgendaRepo() *mockAgendaRepo {
	return &mockAgendaRepo{
		agendas: make(map[uuid.UUID]*Agenda),
		slots:   make(map[slotKey]uuid.UUID),
	}
}

func (m *mockAgendaRepo) key(a *Agenda) slotKey {
	return slotKey{
		prestador:     a.PrestadorID,
		unidade:       a.UnidadeID,
		especialidade: a.EspecialidadeID,
		minute:        a.DtAgenda.UTC().Truncate(time.Minute).Unix(),
	}
}

func (m *mockAgendaRepo) Create(_ context.Context, a *Agenda) error {
	k := m.key(a)
	if _, exists := m.slots[k]; exists {
		return ErrSlotTaken
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.agendas[a.ID] = &cp
	m.slots[k] = a.ID
	return nil
}

func (m *mockAgendaRepo) GetByID(_ context.Context, id uuid.UUID) (*Agenda, error) {
	a, ok := m.agendas[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAgendaRepo) Update(_ context.Context, a *Agenda) error {
	if _, ok := m.agendas[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.agendas[a.ID] = &cp
	return nil
}

func (m *mockAgendaRepo) UpdateFromSituacao(_ context.Context, a *Agenda, from Situacao) (bool, error) {
	stored, ok := m.agendas[a.ID]
	if !ok {
		return false, nil
	}
	if stored.Situacao != from {
		return false, nil
	}
	cp := *a
	m.agendas[a.ID] = &cp
	return true, nil
}

func (m *mockAgendaRepo) ListByDay(_ context.Context, prestadorID, unidadeID, especialidadeID uuid.UUID, day time.Time) ([]*Agenda, error) {
	d := day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	var out []*Agenda
	for _, a := range m.agendas {
		if a.PrestadorID != prestadorID || a.UnidadeID != unidadeID || a.EspecialidadeID != especialidadeID {
			continue
		}
		if a.DtAgenda.Before(start) || !a.DtAgenda.Before(end) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockAgendaRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*Agenda, int, error) {
	var out []*Agenda
	for _, a := range m.agendas {
		out = append(out, a)
	}
	return out, len(out), nil
}

type mockClienteDirectory struct {
	names map[uuid.UUID]string
	err   error
}

func (m *mockClienteDirectory) DisplayName(_ context.Context, id uuid.UUID) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	name, ok := m.names[id]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

type mockBilling struct {
	booked    []BookingEvent
	freed     []uuid.UUID
	bookedErr error
	freedErr  error
}

func (m *mockBilling) OnBooked(_ context.Context, ev BookingEvent) error {
	if m.bookedErr != nil {
		return m.bookedErr
	}
	m.booked = append(m.booked, ev)
	return nil
}

func (m *mockBilling) OnFreed(_ context.Context, agendaID uuid.UUID) error {
	if m.freedErr != nil {
		return m.freedErr
	}
	m.freed = append(m.freed, agendaID)
	return nil
}

type serviceFixture struct {
	svc      *Service
	exp      *mockExpedienteRepo
	ag       *mockAgendaRepo
	clientes *mockClienteDirectory
	billing  *mockBilling
}

func newServiceFixture() *serviceFixture {
	exp := newMockExpedienteRepo()
	ag := newMockAgendaRepo()
	cli := &mockClienteDirectory{names: make(map[uuid.UUID]string)}
	billing := &mockBilling{}
	svc := NewService(exp, ag, cli, billing, zerolog.Nop())
	return &serviceFixture{svc: svc, exp: exp, ag: ag, clientes: cli, billing: billing}
}

func validExpediente() *Expediente {
	e := testExpediente()
	e.PrestadorID = uuid.New()
	e.UnidadeID = uuid.New()
	e.EspecialidadeID = uuid.New()
	return e
}

// -- CreateExpediente --

func TestCreateExpediente_MaterializesSlots(t *testing.T) {
	f := newServiceFixture()
	e := validExpediente()

	// June 2025 has Tuesdays 3, 10, 17, 24; 8 slots each.
	created, err := f.svc.CreateExpediente(context.Background(), e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 32 {
		t.Errorf("expected 32 materialized rows, got %d", created)
	}
	if e.ID == uuid.Nil {
		t.Error("expected expediente id to be assigned")
	}
	if e.Situacao != ExpedienteAtivo {
		t.Errorf("expected default situacao ATIVO, got %s", e.Situacao)
	}

	for _, a := range f.ag.agendas {
		if a.Situacao != SituacaoLivre {
			t.Errorf("materialized row should be LIVRE, got %s", a.Situacao)
		}
		if a.Tipo != TipoProcedimento {
			t.Errorf("materialized row should be PROCEDIMENTO, got %s", a.Tipo)
		}
		if a.ClienteID != nil {
			t.Error("materialized row should carry no cliente")
		}
	}
}

func TestCreateExpediente_SkipsTakenSlots(t *testing.T) {
	f := newServiceFixture()
	e := validExpediente()

	// Pre-occupy one of the slots the shift will generate.
	taken := &Agenda{
		ID:              uuid.New(),
		DtAgenda:        time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
		Situacao:        SituacaoAgendado,
		PrestadorID:     e.PrestadorID,
		UnidadeID:       e.UnidadeID,
		EspecialidadeID: e.EspecialidadeID,
		Tipo:            TipoEncaixe,
	}
	if err := f.ag.Create(context.Background(), taken); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	created, err := f.svc.CreateExpediente(context.Background(), e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 31 {
		t.Errorf("expected 31 rows (one slot already taken), got %d", created)
	}

	// The existing row must be untouched.
	got, err := f.ag.GetByID(context.Background(), taken.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Situacao != SituacaoAgendado {
		t.Errorf("pre-existing row overwritten: situacao %s", got.Situacao)
	}
}

func TestCreateExpediente_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Expediente)
	}{
		{"missing prestador", func(e *Expediente) { e.PrestadorID = uuid.Nil }},
		{"missing unidade", func(e *Expediente) { e.UnidadeID = uuid.Nil }},
		{"missing especialidade", func(e *Expediente) { e.EspecialidadeID = uuid.Nil }},
		{"zero interval", func(e *Expediente) { e.IntervaloMinutos = 0 }},
		{"negative interval", func(e *Expediente) { e.IntervaloMinutos = -15 }},
		{"bad hinicio", func(e *Expediente) { e.HInicio = "8am" }},
		{"bad hfinal", func(e *Expediente) { e.HFinal = "24:00" }},
		{"semana out of range", func(e *Expediente) { e.Semana = 7 }},
		{"negative semana", func(e *Expediente) { e.Semana = -1 }},
		{"dtfinal before dtinicio", func(e *Expediente) { e.DtFinal = e.DtInicio.AddDate(0, 0, -1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			e := validExpediente()
			tt.mutate(e)
			if _, err := f.svc.CreateExpediente(context.Background(), e); !IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
			if len(f.exp.expedientes) != 0 {
				t.Error("invalid expediente must not be persisted")
			}
		})
	}
}

func TestEncerrarExpediente_Idempotent(t *testing.T) {
	f := newServiceFixture()
	e := validExpediente()
	if _, err := f.svc.CreateExpediente(context.Background(), e); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, err := f.svc.EncerrarExpediente(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Situacao != ExpedienteEncerrado {
		t.Errorf("expected ENCERRADO, got %s", first.Situacao)
	}

	second, err := f.svc.EncerrarExpediente(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("second encerrar should be a no-op, got %v", err)
	}
	if second.Situacao != ExpedienteEncerrado {
		t.Errorf("expected ENCERRADO, got %s", second.Situacao)
	}
}

// -- Agendar --

func seedLivreSlot(t *testing.T, f *serviceFixture) *Agenda {
	t.Helper()
	a := &Agenda{
		ID:              uuid.New(),
		DtAgenda:        time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		Situacao:        SituacaoLivre,
		PrestadorID:     uuid.New(),
		UnidadeID:       uuid.New(),
		EspecialidadeID: uuid.New(),
		Tipo:            TipoProcedimento,
	}
	if err := f.ag.Create(context.Background(), a); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return a
}

func validBookRequest() BookRequest {
	return BookRequest{
		ClienteID:      uuid.New(),
		ConvenioID:     uuid.New(),
		ProcedimentoID: uuid.New(),
		ActingUserID:   "op-1",
	}
}

func TestAgendar_Success(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)
	req := validBookRequest()
	f.clientes.names[req.ClienteID] = "Maria Souza"

	outcome, err := f.svc.Agendar(context.Background(), slot.ID, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Agenda.Situacao != SituacaoAgendado {
		t.Errorf("expected AGENDADO, got %s", outcome.Agenda.Situacao)
	}
	if outcome.BillingWarning != "" {
		t.Errorf("unexpected billing warning: %s", outcome.BillingWarning)
	}

	stored, _ := f.ag.GetByID(context.Background(), slot.ID)
	if stored.Situacao != SituacaoAgendado {
		t.Errorf("stored row not AGENDADO: %s", stored.Situacao)
	}
	if stored.ClienteID == nil || *stored.ClienteID != req.ClienteID {
		t.Error("stored row missing cliente reference")
	}

	if len(f.billing.booked) != 1 {
		t.Fatalf("expected 1 billing event, got %d", len(f.billing.booked))
	}
	ev := f.billing.booked[0]
	if ev.AgendaID != slot.ID || ev.ClienteID != req.ClienteID {
		t.Error("billing event carries wrong ids")
	}
	if ev.ClienteNome != "Maria Souza" {
		t.Errorf("expected resolved cliente name, got %q", ev.ClienteNome)
	}
	if ev.ActingUserID != "op-1" {
		t.Errorf("expected acting user op-1, got %q", ev.ActingUserID)
	}
}

func TestAgendar_Validation(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)

	tests := []struct {
		name   string
		mutate func(*BookRequest)
	}{
		{"missing cliente", func(r *BookRequest) { r.ClienteID = uuid.Nil }},
		{"missing convenio", func(r *BookRequest) { r.ConvenioID = uuid.Nil }},
		{"missing procedimento", func(r *BookRequest) { r.ProcedimentoID = uuid.Nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validBookRequest()
			tt.mutate(&req)
			if _, err := f.svc.Agendar(context.Background(), slot.ID, req); !IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestAgendar_NotFound(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.Agendar(context.Background(), uuid.New(), validBookRequest())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAgendar_SlotNotLivre(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)

	if _, err := f.svc.Agendar(context.Background(), slot.ID, validBookRequest()); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	_, err := f.svc.Agendar(context.Background(), slot.ID, validBookRequest())
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("expected ErrSlotTaken on double booking, got %v", err)
	}
	if len(f.billing.booked) != 1 {
		t.Errorf("losing booking must not reach billing, got %d events", len(f.billing.booked))
	}
}

func TestAgendar_GuardMissMapsToSlotTaken(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)

	// Simulate a concurrent winner landing between the read and the guarded
	// update: the wrapper flips the stored row right after GetByID.
	raced := &racingAgendaRepo{mockAgendaRepo: f.ag, flipOnRead: slot.ID}
	svc := NewService(f.exp, raced, f.clientes, f.billing, zerolog.Nop())

	_, err := svc.Agendar(context.Background(), slot.ID, validBookRequest())
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("expected ErrSlotTaken when guard misses, got %v", err)
	}
	if len(f.billing.booked) != 0 {
		t.Error("guard miss must not reach billing")
	}
}

// racingAgendaRepo returns LIVRE from GetByID but flips the stored row to
// AGENDADO right after, so the situacao guard misses.
type racingAgendaRepo struct {
	*mockAgendaRepo
	flipOnRead uuid.UUID
}

func (r *racingAgendaRepo) GetByID(ctx context.Context, id uuid.UUID) (*Agenda, error) {
	a, err := r.mockAgendaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if id == r.flipOnRead {
		r.mockAgendaRepo.agendas[id].Situacao = SituacaoAgendado
	}
	return a, nil
}

func TestAgendar_BillingFailureDoesNotFailBooking(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)
	f.billing.bookedErr = fmt.Errorf("billing store unavailable")

	outcome, err := f.svc.Agendar(context.Background(), slot.ID, validBookRequest())
	if err != nil {
		t.Fatalf("booking must succeed despite billing failure, got %v", err)
	}
	if outcome.BillingWarning == "" {
		t.Error("expected a billing warning on the outcome")
	}

	stored, _ := f.ag.GetByID(context.Background(), slot.ID)
	if stored.Situacao != SituacaoAgendado {
		t.Errorf("transition must stick, got %s", stored.Situacao)
	}
}

// -- Finalizar --

func TestFinalizar_RoundTrip(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)

	if _, err := f.svc.Agendar(context.Background(), slot.ID, validBookRequest()); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	outcome, err := f.svc.Finalizar(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Agenda.Situacao != SituacaoLivre {
		t.Errorf("expected LIVRE, got %s", outcome.Agenda.Situacao)
	}
	if outcome.BillingWarning != "" {
		t.Errorf("unexpected billing warning: %s", outcome.BillingWarning)
	}

	stored, _ := f.ag.GetByID(context.Background(), slot.ID)
	if stored.ClienteID != nil || stored.ConvenioID != nil || stored.ProcedimentoID != nil || stored.TipoCliente != nil {
		t.Error("freed slot must carry no booking references")
	}

	if len(f.billing.freed) != 1 || f.billing.freed[0] != slot.ID {
		t.Errorf("expected billing removal for %s, got %v", slot.ID, f.billing.freed)
	}

	// The freed slot is bookable again.
	if _, err := f.svc.Agendar(context.Background(), slot.ID, validBookRequest()); err != nil {
		t.Errorf("freed slot should be bookable, got %v", err)
	}
}

func TestFinalizar_OnlyFromAgendado(t *testing.T) {
	for _, situacao := range []Situacao{SituacaoLivre, SituacaoConfirmado, SituacaoFalta, SituacaoFinalizado, SituacaoBloqueado, SituacaoInativo} {
		t.Run(string(situacao), func(t *testing.T) {
			f := newServiceFixture()
			slot := seedLivreSlot(t, f)
			f.ag.agendas[slot.ID].Situacao = situacao

			if _, err := f.svc.Finalizar(context.Background(), slot.ID); !IsValidation(err) {
				t.Errorf("expected ValidationError from %s, got %v", situacao, err)
			}
			if len(f.billing.freed) != 0 {
				t.Error("rejected finalize must not reach billing")
			}
		})
	}
}

func TestFinalizar_BillingFailureBecomesWarning(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)

	if _, err := f.svc.Agendar(context.Background(), slot.ID, validBookRequest()); err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	f.billing.freedErr = fmt.Errorf("billing store unavailable")

	outcome, err := f.svc.Finalizar(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("finalize must succeed despite billing failure, got %v", err)
	}
	if outcome.BillingWarning == "" {
		t.Error("expected a billing warning on the outcome")
	}
	stored, _ := f.ag.GetByID(context.Background(), slot.ID)
	if stored.Situacao != SituacaoLivre {
		t.Errorf("transition must stick, got %s", stored.Situacao)
	}
}

// -- AlterarSituacao --

func TestAlterarSituacao(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)

	a, err := f.svc.AlterarSituacao(context.Background(), slot.ID, SituacaoBloqueado)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Situacao != SituacaoBloqueado {
		t.Errorf("expected BLOQUEADO, got %s", a.Situacao)
	}
}

func TestAlterarSituacao_Rejections(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)

	tests := []struct {
		name string
		nova Situacao
	}{
		{"unknown value", Situacao("PENDENTE")},
		{"agendado reserved for booking", SituacaoAgendado},
		{"livre reserved for finalize", SituacaoLivre},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.AlterarSituacao(context.Background(), slot.ID, tt.nova); !IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

// -- Cancelar --

func TestCancelar_SetsInativoAndKeepsBilling(t *testing.T) {
	f := newServiceFixture()
	slot := seedLivreSlot(t, f)

	if _, err := f.svc.Agendar(context.Background(), slot.ID, validBookRequest()); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	a, err := f.svc.Cancelar(context.Background(), slot.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Situacao != SituacaoInativo {
		t.Errorf("expected INATIVO, got %s", a.Situacao)
	}
	if len(f.billing.freed) != 0 {
		t.Error("cancel must leave the billing entry in place")
	}
}

// -- CriarEncaixe --

func validEncaixeRequest() EncaixeRequest {
	return EncaixeRequest{
		DtAgenda:        time.Date(2025, 6, 10, 9, 17, 0, 0, time.UTC),
		PrestadorID:     uuid.New(),
		UnidadeID:       uuid.New(),
		EspecialidadeID: uuid.New(),
		ClienteID:       uuid.New(),
		ConvenioID:      uuid.New(),
		ProcedimentoID:  uuid.New(),
		ActingUserID:    "op-2",
	}
}

func TestCriarEncaixe_Success(t *testing.T) {
	f := newServiceFixture()
	req := validEncaixeRequest()

	outcome, err := f.svc.CriarEncaixe(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := outcome.Agenda
	if a.Tipo != TipoEncaixe {
		t.Errorf("expected ENCAIXE, got %s", a.Tipo)
	}
	if a.Situacao != SituacaoAgendado {
		t.Errorf("expected AGENDADO, got %s", a.Situacao)
	}
	if !a.DtAgenda.Equal(req.DtAgenda) {
		t.Errorf("expected dtagenda %v, got %v", req.DtAgenda, a.DtAgenda)
	}
	if len(f.billing.booked) != 1 {
		t.Errorf("expected 1 billing event, got %d", len(f.billing.booked))
	}
}

func TestCriarEncaixe_DuplicateSlot(t *testing.T) {
	f := newServiceFixture()
	req := validEncaixeRequest()

	if _, err := f.svc.CriarEncaixe(context.Background(), req); err != nil {
		t.Fatalf("first encaixe failed: %v", err)
	}
	req.ClienteID = uuid.New()
	_, err := f.svc.CriarEncaixe(context.Background(), req)
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("expected ErrSlotTaken for duplicate instant, got %v", err)
	}
	if len(f.billing.booked) != 1 {
		t.Error("failed encaixe must not reach billing")
	}
}

func TestCriarEncaixe_Validation(t *testing.T) {
	f := newServiceFixture()

	tests := []struct {
		name   string
		mutate func(*EncaixeRequest)
	}{
		{"missing dtagenda", func(r *EncaixeRequest) { r.DtAgenda = time.Time{} }},
		{"missing prestador", func(r *EncaixeRequest) { r.PrestadorID = uuid.Nil }},
		{"missing unidade", func(r *EncaixeRequest) { r.UnidadeID = uuid.Nil }},
		{"missing especialidade", func(r *EncaixeRequest) { r.EspecialidadeID = uuid.Nil }},
		{"missing cliente", func(r *EncaixeRequest) { r.ClienteID = uuid.Nil }},
		{"missing convenio", func(r *EncaixeRequest) { r.ConvenioID = uuid.Nil }},
		{"missing procedimento", func(r *EncaixeRequest) { r.ProcedimentoID = uuid.Nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validEncaixeRequest()
			tt.mutate(&req)
			if _, err := f.svc.CriarEncaixe(context.Background(), req); !IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

// -- GetDaySchedule --

func TestGetDaySchedule_MergedView(t *testing.T) {
	f := newServiceFixture()
	e := validExpediente()
	if _, err := f.svc.CreateExpediente(context.Background(), e); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Book the 09:00 slot on 2025-06-10.
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	var target *Agenda
	for _, a := range f.ag.agendas {
		if a.DtAgenda.Equal(date.Add(9 * time.Hour)) {
			target = a
			break
		}
	}
	if target == nil {
		t.Fatal("expected a materialized 09:00 slot")
	}
	req := validBookRequest()
	f.clientes.names[req.ClienteID] = "Joao Lima"
	if _, err := f.svc.Agendar(context.Background(), target.ID, req); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	entries, err := f.svc.GetDaySchedule(context.Background(), e.PrestadorID, e.UnidadeID, e.EspecialidadeID, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 8 {
		t.Fatalf("expected 8 entries, got %d", len(entries))
	}

	livre, agendado := 0, 0
	for _, en := range entries {
		switch en.Situacao {
		case SituacaoLivre:
			livre++
		case SituacaoAgendado:
			agendado++
			if en.Ocupante == nil || *en.Ocupante != "Joao Lima" {
				t.Error("expected occupant label on the booked entry")
			}
		}
	}
	if livre != 7 || agendado != 1 {
		t.Errorf("expected 7 LIVRE / 1 AGENDADO, got %d / %d", livre, agendado)
	}
}

func TestGetDaySchedule_NoExpedienteIsEmpty(t *testing.T) {
	f := newServiceFixture()

	entries, err := f.svc.GetDaySchedule(context.Background(), uuid.New(), uuid.New(), uuid.New(), time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected empty result, not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestGetDaySchedule_ClienteLookupFailureOmitsLabel(t *testing.T) {
	f := newServiceFixture()
	e := validExpediente()
	if _, err := f.svc.CreateExpediente(context.Background(), e); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	var target *Agenda
	for _, a := range f.ag.agendas {
		if a.DtAgenda.Equal(date.Add(8 * time.Hour)) {
			target = a
			break
		}
	}
	req := validBookRequest()
	f.clientes.names[req.ClienteID] = "temp"
	if _, err := f.svc.Agendar(context.Background(), target.ID, req); err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	f.clientes.err = fmt.Errorf("directory unavailable")

	entries, err := f.svc.GetDaySchedule(context.Background(), e.PrestadorID, e.UnidadeID, e.EspecialidadeID, date)
	if err != nil {
		t.Fatalf("lookup failure must not fail the view: %v", err)
	}
	for _, en := range entries {
		if en.Situacao == SituacaoAgendado && en.Ocupante != nil {
			t.Error("expected occupant label to be omitted on lookup failure")
		}
	}
}

func TestGetDaySchedule_UsesMostRecentExpediente(t *testing.T) {
	f := newServiceFixture()
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	older := validExpediente()
	older.ID = uuid.New()
	older.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.exp.expedientes[older.ID] = older

	// Same assignment, shorter window, created later.
	newer := validExpediente()
	newer.ID = uuid.New()
	newer.PrestadorID = older.PrestadorID
	newer.UnidadeID = older.UnidadeID
	newer.EspecialidadeID = older.EspecialidadeID
	newer.HInicio = "08:00"
	newer.HFinal = "10:00"
	newer.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	f.exp.expedientes[newer.ID] = newer

	entries, err := f.svc.GetDaySchedule(context.Background(), older.PrestadorID, older.UnidadeID, older.EspecialidadeID, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 08:00-10:00 at 30 min is 4 slots, not the older shift's 8.
	if len(entries) != 4 {
		t.Errorf("expected the newer shift's 4 slots, got %d", len(entries))
	}
}

func TestSearchAgendas_RejectsUnknownFilterValues(t *testing.T) {
	f := newServiceFixture()

	_, _, err := f.svc.SearchAgendas(context.Background(), map[string]string{"tipo": "RETORNO"}, 20, 0)
	if !IsValidation(err) {
		t.Errorf("expected validation error for tipo RETORNO, got %v", err)
	}

	_, _, err = f.svc.SearchAgendas(context.Background(), map[string]string{"situacao": "PENDENTE"}, 20, 0)
	if !IsValidation(err) {
		t.Errorf("expected validation error for situacao PENDENTE, got %v", err)
	}

	if _, _, err = f.svc.SearchAgendas(context.Background(), map[string]string{"tipo": "ENCAIXE", "situacao": "AGENDADO"}, 20, 0); err != nil {
		t.Errorf("expected valid filters to pass, got %v", err)
	}
}
