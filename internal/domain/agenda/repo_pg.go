package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const uniqueViolation = "23505"

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSlotTaken
	}
	return err
}

// =========== Expediente Repository ===========

type expedienteRepoPG struct{ pool *pgxpool.Pool }

func NewExpedienteRepoPG(pool *pgxpool.Pool) ExpedienteRepository {
	return &expedienteRepoPG{pool: pool}
}

func (r *expedienteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const expedienteCols = `id, prestador_id, unidade_id, especialidade_id,
	dtinicio, dtfinal, hinicio, hfinal, intervalo_minutos, semana, situacao,
	created_at, updated_at`

func scanExpediente(row pgx.Row) (*Expediente, error) {
	var e Expediente
	err := row.Scan(&e.ID, &e.PrestadorID, &e.UnidadeID, &e.EspecialidadeID,
		&e.DtInicio, &e.DtFinal, &e.HInicio, &e.HFinal, &e.IntervaloMinutos,
		&e.Semana, &e.Situacao, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &e, nil
}

func (r *expedienteRepoPG) Create(ctx context.Context, e *Expediente) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO expedientes (id, prestador_id, unidade_id, especialidade_id,
			dtinicio, dtfinal, hinicio, hfinal, intervalo_minutos, semana, situacao)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		e.ID, e.PrestadorID, e.UnidadeID, e.EspecialidadeID,
		e.DtInicio, e.DtFinal, e.HInicio, e.HFinal, e.IntervaloMinutos,
		e.Semana, e.Situacao).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapPgError(err)
}

func (r *expedienteRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Expediente, error) {
	return scanExpediente(r.conn(ctx).QueryRow(ctx,
		`SELECT `+expedienteCols+` FROM expedientes WHERE id = $1`, id))
}

func (r *expedienteRepoPG) Update(ctx context.Context, e *Expediente) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE expedientes SET dtinicio=$2, dtfinal=$3, hinicio=$4, hfinal=$5,
			intervalo_minutos=$6, semana=$7, situacao=$8, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.DtInicio, e.DtFinal, e.HInicio, e.HFinal,
		e.IntervaloMinutos, e.Semana, e.Situacao)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *expedienteRepoPG) ListByAlocacao(ctx context.Context, prestadorID, unidadeID, especialidadeID uuid.UUID) ([]*Expediente, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+expedienteCols+` FROM expedientes
		WHERE prestador_id = $1 AND unidade_id = $2 AND especialidade_id = $3
		ORDER BY created_at DESC, id`,
		prestadorID, unidadeID, especialidadeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Expediente
	for rows.Next() {
		e, err := scanExpediente(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *expedienteRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Expediente, int, error) {
	query := `SELECT ` + expedienteCols + ` FROM expedientes WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM expedientes WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["prestador_id"]; ok {
		query += fmt.Sprintf(` AND prestador_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND prestador_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["unidade_id"]; ok {
		query += fmt.Sprintf(` AND unidade_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND unidade_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["especialidade_id"]; ok {
		query += fmt.Sprintf(` AND especialidade_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND especialidade_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["situacao"]; ok {
		query += fmt.Sprintf(` AND situacao = $%d`, idx)
		countQuery += fmt.Sprintf(` AND situacao = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Expediente
	for rows.Next() {
		e, err := scanExpediente(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

// =========== Agenda Repository ===========

type agendaRepoPG struct{ pool *pgxpool.Pool }

func NewAgendaRepoPG(pool *pgxpool.Pool) AgendaRepository {
	return &agendaRepoPG{pool: pool}
}

func (r *agendaRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const agendaCols = `id, dtagenda, situacao, cliente_id, convenio_id, procedimento_id,
	prestador_id, unidade_id, especialidade_id, tipo, tipo_cliente, created_at, updated_at`

func scanAgenda(row pgx.Row) (*Agenda, error) {
	var a Agenda
	err := row.Scan(&a.ID, &a.DtAgenda, &a.Situacao, &a.ClienteID, &a.ConvenioID,
		&a.ProcedimentoID, &a.PrestadorID, &a.UnidadeID, &a.EspecialidadeID,
		&a.Tipo, &a.TipoCliente, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &a, nil
}

func (r *agendaRepoPG) Create(ctx context.Context, a *Agenda) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO agendas (id, dtagenda, situacao, cliente_id, convenio_id,
			procedimento_id, prestador_id, unidade_id, especialidade_id, tipo, tipo_cliente)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		a.ID, a.DtAgenda, a.Situacao, a.ClienteID, a.ConvenioID,
		a.ProcedimentoID, a.PrestadorID, a.UnidadeID, a.EspecialidadeID,
		a.Tipo, a.TipoCliente).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapPgError(err)
}

func (r *agendaRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Agenda, error) {
	return scanAgenda(r.conn(ctx).QueryRow(ctx,
		`SELECT `+agendaCols+` FROM agendas WHERE id = $1`, id))
}

func (r *agendaRepoPG) Update(ctx context.Context, a *Agenda) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE agendas SET situacao=$2, cliente_id=$3, convenio_id=$4,
			procedimento_id=$5, tipo=$6, tipo_cliente=$7, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Situacao, a.ClienteID, a.ConvenioID, a.ProcedimentoID,
		a.Tipo, a.TipoCliente)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *agendaRepoPG) UpdateFromSituacao(ctx context.Context, a *Agenda, from Situacao) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE agendas SET situacao=$2, cliente_id=$3, convenio_id=$4,
			procedimento_id=$5, tipo_cliente=$6, updated_at=NOW()
		WHERE id = $1 AND situacao = $7`,
		a.ID, a.Situacao, a.ClienteID, a.ConvenioID, a.ProcedimentoID,
		a.TipoCliente, from)
	if err != nil {
		return false, mapPgError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *agendaRepoPG) ListByDay(ctx context.Context, prestadorID, unidadeID, especialidadeID uuid.UUID, day time.Time) ([]*Agenda, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+agendaCols+` FROM agendas
		WHERE prestador_id = $1 AND unidade_id = $2 AND especialidade_id = $3
		  AND dtagenda >= $4 AND dtagenda < $5
		ORDER BY dtagenda ASC`,
		prestadorID, unidadeID, especialidadeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Agenda
	for rows.Next() {
		a, err := scanAgenda(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *agendaRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Agenda, int, error) {
	query := `SELECT ` + agendaCols + ` FROM agendas WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM agendas WHERE 1=1`
	var args []interface{}
	idx := 1

	for param, col := range map[string]string{
		"prestador_id":     "prestador_id",
		"unidade_id":       "unidade_id",
		"especialidade_id": "especialidade_id",
		"cliente_id":       "cliente_id",
		"situacao":         "situacao",
		"tipo":             "tipo",
	} {
		if p, ok := params[param]; ok {
			query += fmt.Sprintf(` AND %s = $%d`, col, idx)
			countQuery += fmt.Sprintf(` AND %s = $%d`, col, idx)
			args = append(args, p)
			idx++
		}
	}
	if p, ok := params["data"]; ok {
		query += fmt.Sprintf(` AND dtagenda >= $%d AND dtagenda < $%d + interval '1 day'`, idx, idx)
		countQuery += fmt.Sprintf(` AND dtagenda >= $%d AND dtagenda < $%d + interval '1 day'`, idx, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY dtagenda ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Agenda
	for rows.Next() {
		a, err := scanAgenda(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// =========== Cliente directory ===========

type clienteDirectoryPG struct{ pool *pgxpool.Pool }

func NewClienteDirectoryPG(pool *pgxpool.Pool) ClienteDirectory {
	return &clienteDirectoryPG{pool: pool}
}

func (r *clienteDirectoryPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *clienteDirectoryPG) DisplayName(ctx context.Context, id uuid.UUID) (string, error) {
	var nome string
	err := r.conn(ctx).QueryRow(ctx, `SELECT nome FROM clientes WHERE id = $1`, id).Scan(&nome)
	if err != nil {
		return "", mapPgError(err)
	}
	return nome, nil
}
