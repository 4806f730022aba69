package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/d0ggzi/celery-clinic/internal/domain/model"
	apperrors "github.com/d0ggzi/celery-clinic/internal/errors"
)

// PostgresRecordStore implements core.RecordStore on the appointment_records table.
type PostgresRecordStore struct {
	db *sql.DB
}

// NewPostgresRecordStore creates a record store on db. Schema is managed by the migrate package.
func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

// Save inserts the record. The primary key makes writes at-most-once.
func (s *PostgresRecordStore) Save(ctx context.Context, id string, res model.AppointmentResult) error {
	const q = `INSERT INTO appointment_records (id, doctor, date) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, q, id, res.Doctor, res.Date); err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return model.ErrRecordExists
		}
		return fmt.Errorf("insert record %s: %w", id, mapped)
	}
	return nil
}

// Get loads one record by id. Ids that are not UUIDs cannot exist in the table.
func (s *PostgresRecordStore) Get(ctx context.Context, id string) (*model.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrRecordNotFound
	}
	const q = `SELECT id, doctor, date FROM appointment_records WHERE id = $1`
	var rec model.Record
	err := s.db.QueryRowContext(ctx, q, id).Scan(&rec.ID, &rec.Doctor, &rec.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrRecordNotFound
		}
		return nil, fmt.Errorf("select record %s: %w", id, apperrors.MapDBError(err))
	}
	return &rec, nil
}

// Scan returns every stored record.
func (s *PostgresRecordStore) Scan(ctx context.Context) ([]model.Record, error) {
	const q = `SELECT id, doctor, date FROM appointment_records`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(&rec.ID, &rec.Doctor, &rec.Date); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *PostgresRecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
