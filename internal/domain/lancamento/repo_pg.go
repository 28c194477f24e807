package lancamento

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valmeidavr/cpsi-api/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const lancamentoCols = `id, valor, descricao, data_lancamento, tipo, status_pagamento,
	forma_pagamento, agenda_id, cliente_id, usuario_id, status, created_at, updated_at`

func scanLancamento(row pgx.Row) (*Lancamento, error) {
	var l Lancamento
	err := row.Scan(&l.ID, &l.Valor, &l.Descricao, &l.DataLancamento, &l.Tipo,
		&l.StatusPagamento, &l.FormaPagamento, &l.AgendaID, &l.ClienteID,
		&l.UsuarioID, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &l, nil
}

func (r *repoPG) Create(ctx context.Context, l *Lancamento) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lancamentos (id, valor, descricao, data_lancamento, tipo,
			status_pagamento, forma_pagamento, agenda_id, cliente_id, usuario_id, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		l.ID, l.Valor, l.Descricao, l.DataLancamento, l.Tipo,
		l.StatusPagamento, l.FormaPagamento, l.AgendaID, l.ClienteID,
		l.UsuarioID, l.Status).Scan(&l.CreatedAt, &l.UpdatedAt)
	return mapPgError(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Lancamento, error) {
	return scanLancamento(r.conn(ctx).QueryRow(ctx,
		`SELECT `+lancamentoCols+` FROM lancamentos WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, l *Lancamento) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE lancamentos SET valor=$2, descricao=$3, data_lancamento=$4,
			tipo=$5, status_pagamento=$6, forma_pagamento=$7, status=$8, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.Valor, l.Descricao, l.DataLancamento, l.Tipo,
		l.StatusPagamento, l.FormaPagamento, l.Status)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) FindByAgendaID(ctx context.Context, agendaID uuid.UUID) (*Lancamento, error) {
	return scanLancamento(r.conn(ctx).QueryRow(ctx,
		`SELECT `+lancamentoCols+` FROM lancamentos
		 WHERE agenda_id = $1 AND status = $2`, agendaID, StatusAtivo))
}

func (r *repoPG) DeleteByAgendaID(ctx context.Context, agendaID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM lancamentos WHERE agenda_id = $1`, agendaID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Lancamento, int, error) {
	query := `SELECT ` + lancamentoCols + ` FROM lancamentos WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM lancamentos WHERE 1=1`
	var args []interface{}
	idx := 1

	for param, col := range map[string]string{
		"cliente_id":       "cliente_id",
		"agenda_id":        "agenda_id",
		"tipo":             "tipo",
		"status_pagamento": "status_pagamento",
		"status":           "status",
	} {
		if p, ok := params[param]; ok {
			query += fmt.Sprintf(` AND %s = $%d`, col, idx)
			countQuery += fmt.Sprintf(` AND %s = $%d`, col, idx)
			args = append(args, p)
			idx++
		}
	}
	if p, ok := params["data"]; ok {
		query += fmt.Sprintf(` AND data_lancamento >= $%d AND data_lancamento < $%d + interval '1 day'`, idx, idx)
		countQuery += fmt.Sprintf(` AND data_lancamento >= $%d AND data_lancamento < $%d + interval '1 day'`, idx, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY data_lancamento DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Lancamento
	for rows.Next() {
		l, err := scanLancamento(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}
