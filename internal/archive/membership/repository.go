package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hmuro/slack-archiver/internal/archive/store"
)

const joinedSetContentType = "application/json"

// StoreRepository keeps the joined-channel set as a single JSON array blob
// in the archive store, under a non-dated key so it spans runs.
type StoreRepository struct {
	store store.Store
	key   string
}

var _ Repository = (*StoreRepository)(nil)

func NewStoreRepository(s store.Store, key string) *StoreRepository {
	return &StoreRepository{store: s, key: key}
}

func (r *StoreRepository) Load(ctx context.Context) ([]string, error) {
	content, err := r.store.ReadText(ctx, r.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", r.key, err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(content), &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}

	return ids, nil
}

func (r *StoreRepository) Save(ctx context.Context, channelIDs []string) error {
	if channelIDs == nil {
		channelIDs = []string{}
	}

	data, err := json.MarshalIndent(channelIDs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode joined set: %w", err)
	}

	if err := r.store.WriteText(ctx, r.key, string(data), joinedSetContentType); err != nil {
		return fmt.Errorf("write %s: %w", r.key, err)
	}

	return nil
}
