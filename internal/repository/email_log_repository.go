package repository

import (
    "context"
    "database/sql"

    "github.com/jolie-croquette/ludov-reservation/internal/model"
)

// EmailLogRepo appends notification attempts to the email_logs table.
// The table is append-only; rows are never updated or removed.
type EmailLogRepo struct {
    db *sql.DB
}

// NewEmailLogRepo returns an EmailLogRepo bound to the database.
func NewEmailLogRepo(db *sql.DB) *EmailLogRepo { return &EmailLogRepo{db: db} }

// Append records one dispatch attempt.
func (r *EmailLogRepo) Append(ctx context.Context, e model.EmailLogEntry) error {
    _, err := q(ctx, r.db).ExecContext(ctx,
        `INSERT INTO email_logs (reservation_id, email_type, recipient, status, error_message, createdAt)
         VALUES (?, ?, ?, ?, ?, ?)`,
        e.ReservationID, e.EmailType, e.Recipient, e.Status, e.ErrorMessage, e.CreatedAt.UTC(),
    )
    return mapError(err)
}
