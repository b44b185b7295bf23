package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

// LotRepo implementación de LotRepository sobre PostgreSQL (usable con pool o tx).
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

const lotColumns = `id, company_id, stock_id, code, lot_number, quantity_initial, quantity_remaining,
	date_entered, date_expiration, unit_price, supplier, comment, deleted_at, version, created_at, updated_at`

// Create inserta un lote. Un código repetido en la empresa devuelve domain.ErrDuplicate.
func (r *LotRepo) Create(ctx context.Context, l *entity.Lot) error {
	query := `
		INSERT INTO lots (` + lotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.CompanyID, l.StockID, l.Code, nullable(l.LotNumber), l.QuantityInitial, l.QuantityRemaining,
		l.DateEntered, l.DateExpiration, toNullDecimal(l.UnitPrice), nullable(l.Supplier), nullable(l.Comment),
		l.DeletedAt, l.Version, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID (incluye eliminados). nil, nil si no existe.
func (r *LotRepo) GetByID(ctx context.Context, id string) (*entity.Lot, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1`
	l, err := scanLot(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return l, nil
}

// GetByIDs obtiene varios lotes; los ids inexistentes o inválidos se omiten.
func (r *LotRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.Lot, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*entity.Lot{}, nil
	}
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = ANY($1::uuid[])`
	return r.list(ctx, query, valid)
}

// ListByStock lista los lotes del stock por fecha de entrada e id.
func (r *LotRepo) ListByStock(ctx context.Context, stockID string, includeTombstoned bool) ([]*entity.Lot, error) {
	if !validID(stockID) {
		return []*entity.Lot{}, nil
	}
	query := `SELECT ` + lotColumns + ` FROM lots WHERE stock_id = $1`
	if !includeTombstoned {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY date_entered, id`
	return r.list(ctx, query, stockID)
}

// Update guarda los campos editables si la versión no cambió desde la lectura.
func (r *LotRepo) Update(ctx context.Context, l *entity.Lot) error {
	query := `
		UPDATE lots SET lot_number = $3, quantity_initial = $4, quantity_remaining = $5,
			date_expiration = $6, unit_price = $7, supplier = $8, comment = $9,
			updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query,
		l.ID, l.Version, nullable(l.LotNumber), l.QuantityInitial, l.QuantityRemaining,
		l.DateExpiration, toNullDecimal(l.UnitPrice), nullable(l.Supplier), nullable(l.Comment), l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrConcurrentModification, "el lote %s fue modificado por otra operación", l.Code)
	}
	l.Version++
	return nil
}

// DecrementRemaining resta amount con compare-and-swap sobre el restante esperado.
// El UPDATE condicionado toma el bloqueo de fila, así que dos consumos simultáneos
// sobre el mismo lote no pueden aplicarse ambos con el mismo valor esperado.
func (r *LotRepo) DecrementRemaining(ctx context.Context, id string, expected, amount int64, at time.Time) error {
	query := `
		UPDATE lots SET quantity_remaining = quantity_remaining - $3,
			version = version + 1, updated_at = $4
		WHERE id = $1 AND quantity_remaining = $2 AND quantity_remaining >= $3 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query, id, expected, amount, at)
	if err != nil {
		if isLockConflict(err) {
			return domain.Errorf(domain.ErrConcurrentModification,
				"el lote %s está bloqueado por otro consumo", id)
		}
		return fmt.Errorf("decrement lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrConcurrentModification,
			"el restante del lote %s cambió durante el consumo", id)
	}
	return nil
}

// SetState persiste deleted_at condicionado a la versión.
func (r *LotRepo) SetState(ctx context.Context, l *entity.Lot) error {
	query := `
		UPDATE lots SET deleted_at = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query, l.ID, l.Version, l.DeletedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set lot state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrConcurrentModification, "el lote %s fue modificado por otra operación", l.Code)
	}
	l.Version++
	return nil
}

// Delete borra físicamente un lote eliminado lógicamente.
func (r *LotRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM lots WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.ErrLotNotDeleted, "el lote %s no está eliminado", id)
	}
	return nil
}

func (r *LotRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Lot, 0)
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var (
		l                            entity.Lot
		lotNumber, supplier, comment *string
		price                        decimal.NullDecimal
		expiration, deletedAt        *time.Time
	)
	err := row.Scan(
		&l.ID, &l.CompanyID, &l.StockID, &l.Code, &lotNumber, &l.QuantityInitial, &l.QuantityRemaining,
		&l.DateEntered, &expiration, &price, &supplier, &comment, &deletedAt, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.LotNumber = deref(lotNumber)
	l.Supplier = deref(supplier)
	l.Comment = deref(comment)
	l.DateExpiration = expiration
	if price.Valid {
		p := price.Decimal
		l.UnitPrice = &p
	}
	l.DeletedAt = deletedAt
	l.State = entity.LotStateActive
	if deletedAt != nil {
		l.State = entity.LotStateTombstoned
	}
	return &l, nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
