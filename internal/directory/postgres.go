// Package directory resolves recipient IDs to email addresses.
package directory

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
)

const emailQuery = `SELECT email FROM users WHERE id = $1`

// PostgresDirectory reads addresses from the portal's users table.
type PostgresDirectory struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresDirectory(db *sql.DB, log logger.Logger) *PostgresDirectory {
	return &PostgresDirectory{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

// GetEmail returns errors.ErrRecipientNotFound (by code) when the user does
// not exist or has no address on file.
func (d *PostgresDirectory) GetEmail(ctx context.Context, recipientID int64) (string, error) {
	var email sql.NullString
	err := d.db.QueryRowContext(ctx, emailQuery, recipientID).Scan(&email)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return "", errors.NewRecipientNotFoundError(recipientID)
		}
		d.logger.Error("recipient lookup failed", map[string]interface{}{
			"recipientId": recipientID,
			"error":       err.Error(),
		})
		return "", errors.NewDirectoryLookupFailedError(recipientID, err)
	}

	address := strings.TrimSpace(email.String)
	if !email.Valid || address == "" {
		return "", errors.NewRecipientNotFoundError(recipientID)
	}
	return address, nil
}
