package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"notesapp/internal/types"
)

// ContactRepository resolves a reminder recipient to the owning user's
// contact details. The recipient may be a task ID, a note ID or a user ID.
type ContactRepository struct {
	db DBTX
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db DBTX) *ContactRepository {
	return &ContactRepository{db: db}
}

// ResolveContact looks up the user owning recipient.
func (r *ContactRepository) ResolveContact(ctx context.Context, recipient string) (*types.Contact, error) {
	var c types.Contact
	err := r.db.QueryRow(ctx,
		`SELECT u.id, u.email, COALESCE(u.phone, ''), COALESCE(u.push_token, '')
		 FROM users u
		 WHERE u.id IN (
		   SELECT user_id FROM todo_items WHERE id = $1
		   UNION ALL
		   SELECT user_id FROM notes WHERE id = $1
		   UNION ALL
		   SELECT id FROM users WHERE id = $1
		 )
		 LIMIT 1`,
		recipient,
	).Scan(&c.UserID, &c.Email, &c.Phone, &c.DeviceToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundContact, "no user owns recipient", nil,
				map[string]any{"recipient": recipient})
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to resolve contact", err)
	}
	return &c, nil
}
