package agenda

import (
	"time"

	"github.com/google/uuid"
)

// Situacao is the appointment state.
type Situacao string

const (
	SituacaoLivre      Situacao = "LIVRE"
	SituacaoAgendado   Situacao = "AGENDADO"
	SituacaoConfirmado Situacao = "CONFIRMADO"
	SituacaoFalta      Situacao = "FALTA"
	SituacaoFinalizado Situacao = "FINALIZADO"
	SituacaoBloqueado  Situacao = "BLOQUEADO"
	SituacaoInativo    Situacao = "INATIVO"
)

var validSituacoes = map[Situacao]bool{
	SituacaoLivre: true, SituacaoAgendado: true, SituacaoConfirmado: true,
	SituacaoFalta: true, SituacaoFinalizado: true, SituacaoBloqueado: true,
	SituacaoInativo: true,
}

// Tipo distinguishes regular slot appointments from walk-ins.
type Tipo string

const (
	TipoProcedimento Tipo = "PROCEDIMENTO"
	TipoEncaixe      Tipo = "ENCAIXE"
)

var validTipos = map[Tipo]bool{
	TipoProcedimento: true, TipoEncaixe: true,
}

// Expediente lifecycle states.
const (
	ExpedienteAtivo     = "ATIVO"
	ExpedienteEncerrado = "ENCERRADO"
)

// Expediente is a recurring availability window for one
// (prestador, unidade, especialidade) assignment. Times of day are "HH:MM"
// strings; Semana is the weekday the shift recurs on (0=Sunday .. 6=Saturday).
type Expediente struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PrestadorID      uuid.UUID `db:"prestador_id" json:"prestador_id"`
	UnidadeID        uuid.UUID `db:"unidade_id" json:"unidade_id"`
	EspecialidadeID  uuid.UUID `db:"especialidade_id" json:"especialidade_id"`
	DtInicio         time.Time `db:"dtinicio" json:"dtinicio"`
	DtFinal          time.Time `db:"dtfinal" json:"dtfinal"`
	HInicio          string    `db:"hinicio" json:"hinicio"`
	HFinal           string    `db:"hfinal" json:"hfinal"`
	IntervaloMinutos int       `db:"intervalo_minutos" json:"intervalo_minutos"`
	Semana           int       `db:"semana" json:"semana"`
	Situacao         string    `db:"situacao" json:"situacao"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Agenda is a single appointment slot. At most one row exists per
// (prestador, unidade, especialidade, dtagenda) tuple; the store enforces this
// with a unique index and Create surfaces violations as ErrSlotTaken.
type Agenda struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	DtAgenda        time.Time  `db:"dtagenda" json:"dtagenda"`
	Situacao        Situacao   `db:"situacao" json:"situacao"`
	ClienteID       *uuid.UUID `db:"cliente_id" json:"cliente_id,omitempty"`
	ConvenioID      *uuid.UUID `db:"convenio_id" json:"convenio_id,omitempty"`
	ProcedimentoID  *uuid.UUID `db:"procedimento_id" json:"procedimento_id,omitempty"`
	PrestadorID     uuid.UUID  `db:"prestador_id" json:"prestador_id"`
	UnidadeID       uuid.UUID  `db:"unidade_id" json:"unidade_id"`
	EspecialidadeID uuid.UUID  `db:"especialidade_id" json:"especialidade_id"`
	Tipo            Tipo       `db:"tipo" json:"tipo"`
	TipoCliente     *string    `db:"tipo_cliente" json:"tipo_cliente,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ScheduleEntry is one line of a day-schedule view: a candidate slot time plus
// whatever appointment occupies it, if any.
type ScheduleEntry struct {
	Horario  time.Time `json:"horario"`
	Situacao Situacao  `json:"situacao"`
	Ocupante *string   `json:"ocupante,omitempty"`
	Agenda   *Agenda   `json:"agenda,omitempty"`
}

// BookRequest carries everything a booking needs. ActingUserID is the verified
// identity of the operator performing the action, passed explicitly.
type BookRequest struct {
	ClienteID      uuid.UUID `json:"cliente_id"`
	ConvenioID     uuid.UUID `json:"convenio_id"`
	ProcedimentoID uuid.UUID `json:"procedimento_id"`
	TipoCliente    *string   `json:"tipo_cliente,omitempty"`
	ActingUserID   string    `json:"-"`
}

// EncaixeRequest creates a walk-in appointment directly in AGENDADO.
type EncaixeRequest struct {
	DtAgenda        time.Time `json:"dtagenda"`
	PrestadorID     uuid.UUID `json:"prestador_id"`
	UnidadeID       uuid.UUID `json:"unidade_id"`
	EspecialidadeID uuid.UUID `json:"especialidade_id"`
	ClienteID       uuid.UUID `json:"cliente_id"`
	ConvenioID      uuid.UUID `json:"convenio_id"`
	ProcedimentoID  uuid.UUID `json:"procedimento_id"`
	TipoCliente     *string   `json:"tipo_cliente,omitempty"`
	ActingUserID    string    `json:"-"`
}

// BookingOutcome is the result of a transition that carries a billing side
// effect. BillingWarning is set when the side effect failed; the primary
// transition still succeeded.
type BookingOutcome struct {
	Agenda         *Agenda `json:"agenda"`
	BillingWarning string  `json:"billing_warning,omitempty"`
}
