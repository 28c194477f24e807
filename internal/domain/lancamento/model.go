package lancamento

import (
	"time"

	"github.com/google/uuid"
)

// Tipo is the ledger entry direction.
type Tipo string

const (
	TipoEntrada       Tipo = "ENTRADA"
	TipoSaida         Tipo = "SAIDA"
	TipoTransferencia Tipo = "TRANSFERENCIA"
)

var validTipos = map[Tipo]bool{
	TipoEntrada: true, TipoSaida: true, TipoTransferencia: true,
}

// StatusPagamento is the payment lifecycle of an entry.
type StatusPagamento string

const (
	PagamentoPendente  StatusPagamento = "PENDENTE"
	PagamentoPago      StatusPagamento = "PAGO"
	PagamentoEstornado StatusPagamento = "ESTORNADO"
)

var validStatusPagamento = map[StatusPagamento]bool{
	PagamentoPendente: true, PagamentoPago: true, PagamentoEstornado: true,
}

var validFormasPagamento = map[string]bool{
	"DINHEIRO": true, "CARTAO": true, "PIX": true, "BOLETO": true,
}

// Record lifecycle states.
const (
	StatusAtivo   = "ATIVO"
	StatusInativo = "INATIVO"
)

// Lancamento is a financial ledger entry. Entries created from a booking carry
// the originating agenda id; manual entries leave it nil.
type Lancamento struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Valor           float64         `db:"valor" json:"valor"`
	Descricao       string          `db:"descricao" json:"descricao"`
	DataLancamento  time.Time       `db:"data_lancamento" json:"data_lancamento"`
	Tipo            Tipo            `db:"tipo" json:"tipo"`
	StatusPagamento StatusPagamento `db:"status_pagamento" json:"status_pagamento"`
	FormaPagamento  *string         `db:"forma_pagamento" json:"forma_pagamento,omitempty"`
	AgendaID        *uuid.UUID      `db:"agenda_id" json:"agenda_id,omitempty"`
	ClienteID       *uuid.UUID      `db:"cliente_id" json:"cliente_id,omitempty"`
	UsuarioID       *string         `db:"usuario_id" json:"usuario_id,omitempty"`
	Status          string          `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
