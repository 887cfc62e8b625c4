package assets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Registry is the in-memory id → asset map every session reads from. It is
// loaded from the store at startup and only grows; assets are immutable.
type Registry struct {
	store Store

	mu     sync.RWMutex
	assets map[string]*Record
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store, assets: make(map[string]*Record)}
}

func (r *Registry) Load(ctx context.Context) error {
	records, err := r.store.ListAssets(ctx)
	if err != nil {
		return fmt.Errorf("load assets: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.assets[rec.ID] = rec
	}
	return nil
}

// Register persists rec and makes it visible to lookups.
func (r *Registry) Register(ctx context.Context, rec *Record) error {
	if err := r.store.CreateAsset(ctx, rec); err != nil {
		return fmt.Errorf("store asset: %w", err)
	}
	r.mu.Lock()
	r.assets[rec.ID] = rec
	r.mu.Unlock()
	return nil
}

func (r *Registry) Record(id string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.assets[id]
	return rec, ok
}

// Get satisfies timeline.AssetLookup.
func (r *Registry) Get(id string) (timeline.Asset, bool) {
	rec, ok := r.Record(id)
	if !ok {
		return timeline.Asset{}, false
	}
	return rec.Asset, true
}

// List returns all assets, newest first.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	out := make([]*Record, 0, len(r.assets))
	for _, rec := range r.assets {
		out = append(out, rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// MediaPath resolves the local file behind an asset for the media server.
func (r *Registry) MediaPath(id string) (string, error) {
	rec, ok := r.Record(id)
	if !ok || rec.Path == "" {
		return "", playback.ErrMediaNotFound
	}
	return rec.Path, nil
}
