package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación de MovementRepository sobre PostgreSQL (usable con pool o tx).
// Las líneas se guardan en JSONB con lot_id y lot_code copiados, para que el historial
// sobreviva al borrado definitivo de los lotes.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, company_id, stock_id, method, total_quantity, motif, lines,
	total_cost, average_unit_cost, idempotency_key, created_at, created_by`

// Create persiste un movimiento.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	lines, err := json.Marshal(m.Lines)
	if err != nil {
		return fmt.Errorf("marshal movement lines: %w", err)
	}
	query := `
		INSERT INTO lot_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.q.Exec(ctx, query,
		m.ID, m.CompanyID, m.StockID, m.Method, m.TotalQuantity, nullable(m.Motif), lines,
		m.TotalCost, m.AverageUnitCost, nullable(m.IdempotencyKey), m.CreatedAt, nullable(m.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento. nil, nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	if !validID(id) {
		return nil, nil
	}
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM lot_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListByStock lista los movimientos del stock, los más recientes primero.
func (r *MovementRepo) ListByStock(ctx context.Context, stockID string, limit, offset int) ([]*entity.Movement, error) {
	if !validID(stockID) {
		return []*entity.Movement{}, nil
	}
	query := `SELECT ` + movementColumns + ` FROM lot_movements
		WHERE stock_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, stockID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// CountByStock cuenta los movimientos del stock.
func (r *MovementRepo) CountByStock(ctx context.Context, stockID string) (int, error) {
	if !validID(stockID) {
		return 0, nil
	}
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM lot_movements WHERE stock_id = $1`, stockID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m                         entity.Movement
		motif, idemKey, createdBy *string
		lines                     []byte
	)
	err := row.Scan(
		&m.ID, &m.CompanyID, &m.StockID, &m.Method, &m.TotalQuantity, &motif, &lines,
		&m.TotalCost, &m.AverageUnitCost, &idemKey, &m.CreatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &m.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal movement lines: %w", err)
	}
	m.Motif = deref(motif)
	m.IdempotencyKey = deref(idemKey)
	m.CreatedBy = deref(createdBy)
	return &m, nil
}
