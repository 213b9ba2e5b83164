package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"payrelay/internal/logger"
	pkgerrors "payrelay/pkg/errors"
)

// FileRepository keeps subscriptions in a local JSON file. It is the fallback
// store for deployments without PostgreSQL; every mutation rewrites the file.
type FileRepository struct {
	path string
	log  logger.Logger

	mu   sync.RWMutex
	subs map[string]Subscription
}

func NewFileRepository(path string, log logger.Logger) (*FileRepository, error) {
	r := &FileRepository{
		path: path,
		log:  log,
		subs: make(map[string]Subscription),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriptions file: %w", err)
	}

	var subs []Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		// A corrupt file must not take the relay down. Start empty and let
		// the next write replace it.
		log.Warnw("subscriptions file is corrupt, starting with an empty set", "path", path, "error", err)
		return r, nil
	}
	for _, sub := range subs {
		r.subs[sub.ID] = sub
	}

	return r, nil
}

func (r *FileRepository) CreateSubscription(ctx context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.subs {
		if existing.Name == sub.Name {
			return pkgerrors.ErrConflict.WithDetail("message", fmt.Sprintf("subscription with name '%s' already exists", sub.Name))
		}
	}

	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	r.subs[sub.ID] = *sub

	return r.persist()
}

func (r *FileRepository) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})

	return subs, nil
}

func (r *FileRepository) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("subscription '%s' not found", id))
	}

	return &sub, nil
}

func (r *FileRepository) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.ID]; !ok {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("subscription '%s' not found", sub.ID))
	}
	for id, existing := range r.subs {
		if id != sub.ID && existing.Name == sub.Name {
			return pkgerrors.ErrConflict.WithDetail("message", fmt.Sprintf("subscription with name '%s' already exists", sub.Name))
		}
	}

	sub.UpdatedAt = time.Now()
	r.subs[sub.ID] = *sub

	return r.persist()
}

func (r *FileRepository) DeleteSubscription(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("subscription '%s' not found", id))
	}
	delete(r.subs, id)

	return r.persist()
}

// persist writes the full set atomically. Callers must hold the write lock.
func (r *FileRepository) persist() error {
	subs := make([]Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})

	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode subscriptions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create subscriptions directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write subscriptions file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace subscriptions file: %w", err)
	}

	return nil
}
