package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-account/app/repository/migrations"

	"github.com/pressly/goose/v3"
)

// gooseRunContext is a seam for tests.
var gooseRunContext = goose.RunContext

// Migrate runs a goose command ("up", "down", "status", ...) against the
// embedded accounts schema.
func Migrate(ctx context.Context, db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("mysql"); err != nil {
		return err
	}
	return gooseRunContext(ctx, command, db, ".", args...)
}
