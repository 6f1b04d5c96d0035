package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

const boltBucket = "spendwatch"

// Bolt implements Store on a single bbolt bucket with prefixed keys.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens or creates a bbolt database at the given path.
func NewBolt(dbPath string) (*Bolt, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) get(key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(boltBucket)).Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (b *Bolt) put(key string, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (b *Bolt) GetSnapshot(_ context.Context, userID, providerID string) (*model.UsageSnapshot, error) {
	raw, err := b.get(usageKey(userID, providerID))
	if err != nil || raw == nil {
		return nil, err
	}

	var snap model.UsageSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (b *Bolt) PutSnapshot(_ context.Context, userID, providerID string, snap *model.UsageSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return b.put(usageKey(userID, providerID), raw)
}

func (b *Bolt) UserSnapshots(_ context.Context, userID string) (map[string]*model.UsageSnapshot, error) {
	prefix := []byte(userUsagePrefix(userID))
	snaps := make(map[string]*model.UsageSnapshot)

	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(boltBucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var snap model.UsageSnapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return fmt.Errorf("decode snapshot %q: %w", k, err)
			}
			snaps[string(k[len(prefix):])] = &snap
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

func (b *Bolt) ListConfigs(_ context.Context) ([]model.ProviderConfig, error) {
	raw, err := b.get(configsKey)
	if err != nil || raw == nil {
		return nil, err
	}

	var configs []model.ProviderConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("decode provider configs: %w", err)
	}
	return configs, nil
}

func (b *Bolt) SaveConfigs(_ context.Context, configs []model.ProviderConfig) error {
	raw, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("encode provider configs: %w", err)
	}
	return b.put(configsKey, raw)
}

func (b *Bolt) GetPushTokens(_ context.Context, userID string) (*model.PushTokens, error) {
	raw, err := b.get(pushTokensKey(userID))
	if err != nil || raw == nil {
		return nil, err
	}

	var tokens model.PushTokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("decode push tokens: %w", err)
	}
	return &tokens, nil
}

func (b *Bolt) SetPushTokens(_ context.Context, userID string, tokens *model.PushTokens) error {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode push tokens: %w", err)
	}
	return b.put(pushTokensKey(userID), raw)
}

func (b *Bolt) Close() error { return b.db.Close() }
