package benchmark

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration embedded under migrations/ to db.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return swarmerrors.FailedTo("set goose dialect", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return swarmerrors.FailedTo("run benchmark schema migrations", err)
	}
	return nil
}
