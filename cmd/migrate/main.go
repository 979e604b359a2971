package main

import (
	"context"
	"log"

	"github.com/raneja-ux/potluck-app/db/migrator"
	"github.com/raneja-ux/potluck-app/internal/adapters/outbound/postgres"
	"github.com/raneja-ux/potluck-app/internal/pkg/env"
)

func main() {
	ctx := context.Background()

	connStr, err := env.Require("DATABASE_URL")
	if err != nil {
		log.Fatal(err)
	}

	pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(connStr))
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	m := migrator.New(pool, env.Get("MIGRATIONS_DIR", "./db/migrations"))
	if err := m.ApplyAll(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("✓ All migrations up to date")
}
