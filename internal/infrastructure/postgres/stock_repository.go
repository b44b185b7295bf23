package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `id, company_id, article_id, article_name, category_id, code, critical_threshold`

// GetByID obtiene un stock. nil, nil si no existe.
func (r *StockRepo) GetByID(ctx context.Context, id string) (*entity.Stock, error) {
	if !validID(id) {
		return nil, nil
	}
	s, err := scanStock(r.q.QueryRow(ctx, `SELECT `+stockColumns+` FROM stocks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

// ListByCompany lista los stocks de la empresa ordenados por código.
func (r *StockRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.Stock, error) {
	if !validID(companyID) {
		return []*entity.Stock{}, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+stockColumns+` FROM stocks WHERE company_id = $1 ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Stock, 0)
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanStock(row pgx.Row) (*entity.Stock, error) {
	var s entity.Stock
	var categoryID *string
	if err := row.Scan(&s.ID, &s.CompanyID, &s.ArticleID, &s.ArticleName, &categoryID, &s.Code, &s.CriticalThreshold); err != nil {
		return nil, err
	}
	s.CategoryID = deref(categoryID)
	return &s, nil
}
