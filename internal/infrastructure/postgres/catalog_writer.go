package postgres

import (
	"context"
	"fmt"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
)

// CatalogWriter inserta o actualiza categorías y stocks importados del ERP.
type CatalogWriter struct {
	q Querier
}

// NewCatalogWriter construye el escritor de catálogo. Pasar pool o tx.
func NewCatalogWriter(q Querier) *CatalogWriter {
	return &CatalogWriter{q: q}
}

// SaveCategory upsert por id.
func (w *CatalogWriter) SaveCategory(ctx context.Context, c entity.Category) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO categories (id, company_id, name, alert_window_days)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			alert_window_days = EXCLUDED.alert_window_days`,
		c.ID, c.CompanyID, c.Name, c.AlertWindowDays,
	)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

// SaveStock upsert por id. El código es único por empresa.
func (w *CatalogWriter) SaveStock(ctx context.Context, s entity.Stock) error {
	_, err := w.q.Exec(ctx, `
		INSERT INTO stocks (id, company_id, article_id, article_name, category_id, code, critical_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			article_name = EXCLUDED.article_name,
			category_id = EXCLUDED.category_id,
			code = EXCLUDED.code,
			critical_threshold = EXCLUDED.critical_threshold`,
		s.ID, s.CompanyID, s.ArticleID, s.ArticleName, nullable(s.CategoryID), s.Code, s.CriticalThreshold,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("código %s repetido en la empresa: %w", s.Code, err)
		}
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}
