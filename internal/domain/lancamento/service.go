package lancamento

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create registers a manual ledger entry, one not driven by a booking.
func (s *Service) Create(ctx context.Context, l *Lancamento) error {
	if l.Descricao == "" {
		return validationErr("descricao", "is required")
	}
	if l.Valor < 0 {
		return validationErr("valor", "must not be negative")
	}
	if l.Tipo == "" {
		l.Tipo = TipoEntrada
	}
	if !validTipos[l.Tipo] {
		return validationErr("tipo", fmt.Sprintf("invalid tipo: %s", l.Tipo))
	}
	if l.StatusPagamento == "" {
		l.StatusPagamento = PagamentoPendente
	}
	if !validStatusPagamento[l.StatusPagamento] {
		return validationErr("status_pagamento", fmt.Sprintf("invalid status_pagamento: %s", l.StatusPagamento))
	}
	if l.FormaPagamento != nil && !validFormasPagamento[*l.FormaPagamento] {
		return validationErr("forma_pagamento", fmt.Sprintf("invalid forma_pagamento: %s", *l.FormaPagamento))
	}
	if l.DataLancamento.IsZero() {
		return validationErr("data_lancamento", "is required")
	}
	if l.Status == "" {
		l.Status = StatusAtivo
	}
	return s.repo.Create(ctx, l)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Lancamento, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByAgenda(ctx context.Context, agendaID uuid.UUID) (*Lancamento, error) {
	return s.repo.FindByAgendaID(ctx, agendaID)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Lancamento, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// RegistrarPagamento marks a pending entry as paid with the given value and
// payment method.
func (s *Service) RegistrarPagamento(ctx context.Context, id uuid.UUID, valor float64, forma string) (*Lancamento, error) {
	if valor < 0 {
		return nil, validationErr("valor", "must not be negative")
	}
	if !validFormasPagamento[forma] {
		return nil, validationErr("forma_pagamento", fmt.Sprintf("invalid forma_pagamento: %s", forma))
	}

	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.StatusPagamento != PagamentoPendente {
		return nil, validationErr("status_pagamento", fmt.Sprintf("cannot register payment on a %s entry", l.StatusPagamento))
	}

	l.Valor = valor
	l.FormaPagamento = &forma
	l.StatusPagamento = PagamentoPago
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Estornar reverses a paid entry.
func (s *Service) Estornar(ctx context.Context, id uuid.UUID) (*Lancamento, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.StatusPagamento != PagamentoPago {
		return nil, validationErr("status_pagamento", fmt.Sprintf("cannot reverse a %s entry", l.StatusPagamento))
	}
	l.StatusPagamento = PagamentoEstornado
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Cancelar soft-deletes an entry (status INATIVO).
func (s *Service) Cancelar(ctx context.Context, id uuid.UUID) (*Lancamento, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Status = StatusInativo
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}
