package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// createSession issues a fresh random token with an absolute expiry and
// atomically replaces any existing record for the email. At most one live
// session record exists per email.
func (a *App) createSession(ctx context.Context, email string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	expiry := a.now().UTC().Add(time.Duration(a.cfg.SessionTTLHours) * time.Hour)

	_, err := a.db.Exec(
		ctx,
		`INSERT INTO sessions (email, session_token, expiry)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE SET session_token = $2, expiry = $3`,
		email,
		token,
		expiry,
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// validateSession reports whether a live session record exists for the email.
// An expired record is deleted as a side effect (lazy sweep, no background
// timer).
func (a *App) validateSession(ctx context.Context, email string) (bool, error) {
	var expiry time.Time
	err := a.db.QueryRow(
		ctx,
		`SELECT expiry FROM sessions WHERE email = $1`,
		email,
	).Scan(&expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if a.now().UTC().After(expiry) {
		if _, err := a.db.Exec(ctx, `DELETE FROM sessions WHERE email = $1`, email); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// invalidateSession removes every session record for the email (logout).
func (a *App) invalidateSession(ctx context.Context, email string) error {
	_, err := a.db.Exec(ctx, `DELETE FROM sessions WHERE email = $1`, email)
	return err
}
