package memory

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/omegacore/omega/pkg/models"
)

const (
	maxFactKeyLen   = 50
	maxFactValueLen = 200
)

var pipeTableRow = regexp.MustCompile(`\|.*\|`)

// IsValidFact implements spec §4.2's is_valid_fact(key,value): the gate
// the LLM-driven fact-extraction path (summarizer) must pass before a
// fact reaches storage. Marker handlers that own a system key write
// through SetSystemFact instead and are not subject to this gate.
func IsValidFact(key, value string) bool {
	if key == "" || len(key) > maxFactKeyLen {
		return false
	}
	if models.IsSystemFactKey(key) {
		return false
	}
	if len(key) > 0 && unicode.IsDigit(rune(key[0])) {
		return false
	}

	if value == "" || len(value) > maxFactValueLen {
		return false
	}
	if strings.HasPrefix(value, "$") {
		return false
	}
	if pipeTableRow.MatchString(value) {
		return false
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return false
	}

	return true
}

// Set stores a fact from the LLM-facing path, rejecting anything
// IsValidFact doesn't pass.
func (s *Store) Set(ctx context.Context, sender, key, value string) error {
	if !IsValidFact(key, value) {
		return ErrInvalidFact
	}
	return s.upsertFact(ctx, sender, key, value)
}

// SetSystemFact writes a reserved key on behalf of the marker handler
// that owns it, bypassing IsValidFact's rejection of system keys.
func (s *Store) SetSystemFact(ctx context.Context, sender, key, value string) error {
	if !models.IsSystemFactKey(key) {
		return ErrInvalidFact
	}
	return s.upsertFact(ctx, sender, key, value)
}

// DeleteSystemFact removes a reserved key, e.g. PROJECT_DEACTIVATE
// clearing active_project.
func (s *Store) DeleteSystemFact(ctx context.Context, sender, key string) error {
	if !models.IsSystemFactKey(key) {
		return ErrInvalidFact
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE sender_id = ? AND key = ?`, sender, key); err != nil {
		return wrapDBError("delete system fact", err)
	}
	return nil
}

func (s *Store) upsertFact(ctx context.Context, sender, key, value string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (sender_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (sender_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sender, key, value, now,
	)
	if err != nil {
		return wrapDBError("upsert fact", err)
	}
	return nil
}

// GetAll returns every fact known about a sender.
func (s *Store) GetAll(ctx context.Context, sender string) ([]*models.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sender_id, key, value, updated_at FROM facts WHERE sender_id = ?`, sender,
	)
	if err != nil {
		return nil, wrapDBError("get all facts", err)
	}
	defer rows.Close()
	return scanFacts(rows)
}

// GetOne returns a single fact, or ErrNotFound.
func (s *Store) GetOne(ctx context.Context, sender, key string) (*models.Fact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT sender_id, key, value, updated_at FROM facts WHERE sender_id = ? AND key = ?`, sender, key,
	)
	var fact models.Fact
	if err := row.Scan(&fact.SenderID, &fact.Key, &fact.Value, &fact.UpdatedAt); err != nil {
		return nil, wrapDBError("get fact", err)
	}
	return &fact, nil
}

// PurgeNonSystem deletes every fact for sender except the reserved
// system keys, for a user-initiated "forget me" reset.
func (s *Store) PurgeNonSystem(ctx context.Context, sender string) error {
	placeholders := make([]string, 0, len(models.SystemFactKeys))
	args := []any{sender}
	for key := range models.SystemFactKeys {
		placeholders = append(placeholders, "?")
		args = append(args, key)
	}
	query := "DELETE FROM facts WHERE sender_id = ? AND key NOT IN (" + strings.Join(placeholders, ",") + ")"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return wrapDBError("purge non-system facts", err)
	}
	return nil
}

func scanFacts(rows *sql.Rows) ([]*models.Fact, error) {
	var out []*models.Fact
	for rows.Next() {
		var fact models.Fact
		if err := rows.Scan(&fact.SenderID, &fact.Key, &fact.Value, &fact.UpdatedAt); err != nil {
			return nil, wrapDBError("scan fact", err)
		}
		out = append(out, &fact)
	}
	return out, wrapDBError("iterate facts", rows.Err())
}
