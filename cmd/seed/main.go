// seed carga en PostgreSQL el catálogo de categorías y stocks exportado por el ERP.
//
// Uso: go run ./cmd/seed [ruta/catalogo.csv]
// Por defecto busca catalogo.csv en el directorio actual. Las exportaciones en
// ISO-8859-1 se convierten a UTF-8 antes de insertar.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/postgres"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/internal/infrastructure/seed"
	"github.com/KevinKpekpe/erp-labs-systems-sub000/pkg/config"
)

func main() {
	path := "catalogo.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cat, err := seed.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return cat.Apply(ctx, postgres.NewCatalogWriter(tx))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar catálogo: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Cargado %s: %d categorías, %d stocks\n", path, len(cat.Categories), len(cat.Stocks))
}
