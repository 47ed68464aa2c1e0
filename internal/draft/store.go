// Package draft keeps the short-lived server-side state of an open product
// page in Redis.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-storefront/internal/lock"
	"github.com/noah-isme/toko-storefront/internal/selection"
)

// ErrNotFound is returned for unknown, malformed or expired draft ids.
var ErrNotFound = errors.New("draft: not found")

// Draft is one open product page.
type Draft struct {
	ID           string        `json:"id"`
	ProductID    int64         `json:"product_id"`
	Selection    selection.Set `json:"selection"`
	Favorited    bool          `json:"favorited"`
	LastSelected *int64        `json:"last_selected,omitempty"`
	ImageIndex   int           `json:"image_index"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store persists drafts with a sliding TTL. Mutations through Update are
// serialised per draft by Locker.
type Store struct {
	R      redis.Cmdable
	TTL    time.Duration
	Locker lock.Locker
	Now    func() time.Time
}

// NewStore builds a store whose lock waits at most lockTTL for a holder.
func NewStore(r redis.Cmdable, ttl, lockTTL time.Duration) *Store {
	return &Store{
		R:      r,
		TTL:    ttl,
		Locker: lock.Locker{R: r, Prefix: "storefront:lock:draft:", TTL: lockTTL, Wait: lockTTL},
	}
}

func key(id string) string { return "storefront:draft:" + id }

func (s *Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return 30 * time.Minute
	}
	return s.TTL
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create assigns a fresh id to d and stores it.
func (s *Store) Create(ctx context.Context, d Draft) (Draft, error) {
	d.ID = uuid.NewString()
	d.CreatedAt = s.now()
	if err := s.Put(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Get loads a draft and refreshes its TTL.
func (s *Store) Get(ctx context.Context, id string) (Draft, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Draft{}, fmt.Errorf("draft %q: %w", id, ErrNotFound)
	}
	data, err := s.R.GetEx(ctx, key(id), s.ttl()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Draft{}, fmt.Errorf("draft %s: %w", id, ErrNotFound)
		}
		return Draft{}, fmt.Errorf("draft %s: %w", id, err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("draft %s: decode: %w", id, err)
	}
	return d, nil
}

// Put stores d, resetting its TTL.
func (s *Store) Put(ctx context.Context, d Draft) error {
	if d.ID == "" {
		return errors.New("draft: id is required")
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("draft %s: encode: %w", d.ID, err)
	}
	return s.R.Set(ctx, key(d.ID), data, s.ttl()).Err()
}

// Delete drops the draft. Deleting an unknown draft is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.R.Del(ctx, key(id)).Err()
}

// Update loads the draft, applies fn and stores the result while holding the
// draft lock. When fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, id string, fn func(*Draft) error) (Draft, error) {
	var out Draft
	err := s.Locker.WithLock(ctx, id, func(ctx context.Context) error {
		d, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&d); err != nil {
			return err
		}
		if err := s.Put(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}
