package database

import (
	"context"
	"fmt"

	"github.com/bunkergame/bunker/internal/auth"
	"github.com/bunkergame/bunker/internal/models"
	"github.com/jackc/pgx/v5"
)

// UpdateUserCredentials rewrites a user's email, password, username and
// ephemeral flag. Used when a guest claims their account.
func UpdateUserCredentials(ctx context.Context, u *models.User) error {
	hashed, err := auth.CreateHash(u.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	q := `UPDATE users SET email = $1, password = $2, username = $3, is_ephemeral = $4 WHERE id = $5`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, q, u.Email, hashed, u.Username, u.IsEphemeral, u.ID)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("user %s not found", u.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update user credentials: %w", err)
	}
	return nil
}
