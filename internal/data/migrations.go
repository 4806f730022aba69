package data

import (
	"context"
	"database/sql"

	"github.com/d0ggzi/celery-clinic/internal/migrate"
)

// RunMigrations sets up the appointment_records schema by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
