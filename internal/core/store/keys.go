package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamrand/streamrand/internal/core"
)

// ErrDuplicateSession is returned when a key was already issued for a payment session.
var ErrDuplicateSession = errors.New("api key already issued for session")

// InsertKey stores a new API key. ID and CreatedAt are filled in when empty.
func (s *Store) InsertKey(ctx context.Context, key *core.APIKey) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if key == nil {
		return errors.New("api key is required")
	}
	if strings.TrimSpace(key.TokenHash) == "" {
		return errors.New("token hash is required")
	}

	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	session := sql.NullString{String: strings.TrimSpace(key.ExternalSessionID)}
	session.Valid = session.String != ""

	if session.Valid {
		exists, err := s.KeyExistsForSession(ctx, session.String)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicateSession, session.String)
		}
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, token_hash, paid_amount, external_session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, key.ID, key.UserID, key.TokenHash, key.PaidAmount, session, key.CreatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}

	return nil
}

// FindKeyByTokenHash returns the key with the given digest, or nil when none matches.
func (s *Store) FindKeyByTokenHash(ctx context.Context, tokenHash string) (*core.APIKey, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, paid_amount, external_session_id, created_at
		FROM api_keys
		WHERE token_hash = ?
	`, tokenHash)

	key, err := scanKey(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch api key: %w", err)
	}
	return key, nil
}

// KeyExistsForSession reports whether a key was issued for the payment session id.
func (s *Store) KeyExistsForSession(ctx context.Context, sessionID string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false, errors.New("session id is required")
	}

	var count int
	row := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM api_keys WHERE external_session_id = ?
	`, sessionID)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check session key: %w", err)
	}
	return count > 0, nil
}

// ListKeys returns the keys owned by userID, newest first. A userID of zero lists every key.
func (s *Store) ListKeys(ctx context.Context, userID int64) ([]core.APIKey, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := `
		SELECT id, user_id, token_hash, paid_amount, external_session_id, created_at
		FROM api_keys
	`
	args := []any{}
	if userID != 0 {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	keys := []core.APIKey{}
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api keys: %w", err)
		}
		keys = append(keys, *key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	return keys, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*core.APIKey, error) {
	var (
		key       core.APIKey
		session   sql.NullString
		createdAt int64
	)
	if err := row.Scan(&key.ID, &key.UserID, &key.TokenHash, &key.PaidAmount, &session, &createdAt); err != nil {
		return nil, err
	}
	if session.Valid {
		key.ExternalSessionID = session.String
	}
	key.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &key, nil
}
