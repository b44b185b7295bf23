// Package seed carga el catálogo de categorías y stocks exportado por el ERP.
//
// Formato: CSV separado por ';' con cabecera
//
//	kind;id;company_id;name;category_id;article_id;code;critical_threshold;alert_window_days
//
// kind es "category" o "stock". Las exportaciones antiguas vienen en ISO-8859-1;
// si el contenido no es UTF-8 válido se decodifica como Latin-1.
package seed

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/domain/entity"
)

// Catalog categorías y stocks leídos del archivo.
type Catalog struct {
	Categories []entity.Category
	Stocks     []entity.Stock
}

// Sink destino del catálogo (almacén en memoria o PostgreSQL).
type Sink interface {
	SaveCategory(ctx context.Context, c entity.Category) error
	SaveStock(ctx context.Context, s entity.Stock) error
}

// Apply guarda primero las categorías y luego los stocks que las referencian.
func (c *Catalog) Apply(ctx context.Context, sink Sink) error {
	for _, cat := range c.Categories {
		if err := sink.SaveCategory(ctx, cat); err != nil {
			return fmt.Errorf("categoría %s: %w", cat.ID, err)
		}
	}
	for _, st := range c.Stocks {
		if err := sink.SaveStock(ctx, st); err != nil {
			return fmt.Errorf("stock %s: %w", st.Code, err)
		}
	}
	return nil
}

// ParseFile lee y parsea el archivo indicado.
func ParseFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("abrir catálogo: %w", err)
	}
	return Parse(data)
}

var requiredColumns = []string{"kind", "id", "company_id"}

// Parse interpreta el contenido del catálogo.
func Parse(data []byte) (*Catalog, error) {
	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("leer cabecera: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("falta la columna %q", name)
		}
	}

	cat := &Catalog{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if err := parseRecord(cat, get); err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
	}
	return cat, nil
}

func parseRecord(cat *Catalog, get func(string) string) error {
	id, companyID := get("id"), get("company_id")
	if err := checkUUID("id", id); err != nil {
		return err
	}
	if err := checkUUID("company_id", companyID); err != nil {
		return err
	}

	switch kind := strings.ToLower(get("kind")); kind {
	case "category":
		c := entity.Category{ID: id, CompanyID: companyID, Name: get("name")}
		if s := get("alert_window_days"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return fmt.Errorf("alert_window_days inválido: %q", s)
			}
			c.AlertWindowDays = &n
		}
		cat.Categories = append(cat.Categories, c)
	case "stock":
		s := entity.Stock{
			ID:          id,
			CompanyID:   companyID,
			ArticleID:   get("article_id"),
			ArticleName: get("name"),
			CategoryID:  get("category_id"),
			Code:        get("code"),
		}
		if s.Code == "" {
			return fmt.Errorf("stock %s sin código", id)
		}
		if err := checkUUID("article_id", s.ArticleID); err != nil {
			return err
		}
		if s.CategoryID != "" {
			if err := checkUUID("category_id", s.CategoryID); err != nil {
				return err
			}
		}
		if v := get("critical_threshold"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("critical_threshold inválido: %q", v)
			}
			s.CriticalThreshold = n
		}
		cat.Stocks = append(cat.Stocks, s)
	default:
		return fmt.Errorf("kind desconocido: %q", kind)
	}
	return nil
}

func checkUUID(field, v string) error {
	if _, err := uuid.Parse(v); err != nil {
		return fmt.Errorf("%s no es un UUID: %q", field, v)
	}
	return nil
}
