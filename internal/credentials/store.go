// Package credentials persists the platform session cookies used by the
// download engine.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// FileName is the credentials file inside the data directory
const FileName = "credentials.json"

// Store loads and saves credentials. Load returns (nil, nil) when nothing
// has been saved yet.
type Store interface {
	Load(ctx context.Context) (*models.Credentials, error)
	Save(ctx context.Context, creds models.Credentials) error
}

// FileStore keeps credentials in a JSON file readable only by the owner
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore stores credentials at {dataDir}/credentials.json
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, FileName)}
}

// Path returns the file location
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store
func (s *FileStore) Load(ctx context.Context) (*models.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, creds models.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace credentials: %w", err)
	}
	return nil
}

// RedisKey holds the credentials hash
const RedisKey = "chzzkdl:credentials"

// RedisStore keeps credentials in a Redis hash so several API instances
// share one login.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(host string, port int, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Load implements Store
func (s *RedisStore) Load(ctx context.Context) (*models.Credentials, error) {
	values, err := s.client.HGetAll(ctx, RedisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	return &models.Credentials{
		AuthToken:    values["nid_aut"],
		SessionToken: values["nid_ses"],
	}, nil
}

// Save implements Store
func (s *RedisStore) Save(ctx context.Context, creds models.Credentials) error {
	err := s.client.HSet(ctx, RedisKey,
		"nid_aut", creds.AuthToken,
		"nid_ses", creds.SessionToken,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
