package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yapay-ai/spendwatch/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements Store on a single key-value table.
type SQLite struct {
	db *sql.DB
}

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL for concurrent readers during a poll cycle
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) GetSnapshot(ctx context.Context, userID, providerID string) (*model.UsageSnapshot, error) {
	raw, err := s.get(ctx, usageKey(userID, providerID))
	if err != nil || raw == nil {
		return nil, err
	}

	var snap model.UsageSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SQLite) PutSnapshot(ctx context.Context, userID, providerID string, snap *model.UsageSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.put(ctx, usageKey(userID, providerID), raw)
}

func (s *SQLite) UserSnapshots(ctx context.Context, userID string) (map[string]*model.UsageSnapshot, error) {
	prefix := userUsagePrefix(userID)
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv_entries WHERE key LIKE ? ESCAPE '\'`,
		likePattern(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := make(map[string]*model.UsageSnapshot)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		var snap model.UsageSnapshot
		if err := json.Unmarshal(value, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot %q: %w", key, err)
		}
		snaps[key[len(prefix):]] = &snap
	}
	return snaps, rows.Err()
}

func (s *SQLite) ListConfigs(ctx context.Context) ([]model.ProviderConfig, error) {
	raw, err := s.get(ctx, configsKey)
	if err != nil || raw == nil {
		return nil, err
	}

	var configs []model.ProviderConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("decode provider configs: %w", err)
	}
	return configs, nil
}

func (s *SQLite) SaveConfigs(ctx context.Context, configs []model.ProviderConfig) error {
	raw, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("encode provider configs: %w", err)
	}
	return s.put(ctx, configsKey, raw)
}

func (s *SQLite) GetPushTokens(ctx context.Context, userID string) (*model.PushTokens, error) {
	raw, err := s.get(ctx, pushTokensKey(userID))
	if err != nil || raw == nil {
		return nil, err
	}

	var tokens model.PushTokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("decode push tokens: %w", err)
	}
	return &tokens, nil
}

func (s *SQLite) SetPushTokens(ctx context.Context, userID string, tokens *model.PushTokens) error {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode push tokens: %w", err)
	}
	return s.put(ctx, pushTokensKey(userID), raw)
}

func (s *SQLite) Close() error { return s.db.Close() }

// likePattern escapes LIKE wildcards in prefix and appends %.
func likePattern(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+2)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '%' || c == '_' || c == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, c)
	}
	return string(escaped) + "%"
}
