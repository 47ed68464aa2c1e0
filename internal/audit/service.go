// Package audit keeps a trail of destructive storefront actions such as
// product and board deletion in a capped Redis stream.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/obs"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind     ActorKind
	MemberID string
}

// Entry is one recorded action.
type Entry struct {
	ID           string         `json:"id,omitempty"`
	At           time.Time      `json:"at"`
	ActorKind    ActorKind      `json:"actorKind"`
	MemberID     string         `json:"memberId,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId,omitempty"`
	Method       string         `json:"method"`
	Path         string         `json:"path"`
	Status       int            `json:"status"`
	IP           string         `json:"ip,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Store appends and lists entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// RedisStore writes entries to a stream trimmed to roughly MaxLen items.
type RedisStore struct {
	R      redis.Cmdable
	Stream string
	MaxLen int64
}

const entryField = "entry"

func (s RedisStore) stream() string {
	if s.Stream == "" {
		return "storefront:audit"
	}
	return s.Stream
}

// Append adds e to the stream.
func (s RedisStore) Append(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode: %w", err)
	}
	args := &redis.XAddArgs{Stream: s.stream(), Values: map[string]any{entryField: payload}}
	if s.MaxLen > 0 {
		args.MaxLen = s.MaxLen
		args.Approx = true
	}
	return s.R.XAdd(ctx, args).Err()
}

// Recent returns up to limit entries, newest first.
func (s RedisStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	msgs, err := s.R.XRevRangeN(ctx, s.stream(), "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values[entryField].(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		e.ID = m.ID
		out = append(out, e)
	}
	return out, nil
}

// Service records audit entries for critical flows.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
	Now          func() time.Time
}

// Record stores an entry describing req when auditing is enabled.
func (s Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata map[string]any) error {
	if !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 && rand.Float64() > s.SamplingRate {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	if status == 0 {
		status = http.StatusOK
	}
	if metadata == nil && strings.TrimSpace(req.URL.RawQuery) != "" {
		metadata = map[string]any{"query": req.URL.RawQuery}
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	return s.Store.Append(ctx, Entry{
		At:           now().UTC(),
		ActorKind:    normalizeActorKind(actor),
		MemberID:     strings.TrimSpace(actor.MemberID),
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   strings.TrimSpace(resourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Status:       status,
		IP:           common.ClientIP(req),
		RequestID:    strings.TrimSpace(req.Header.Get("X-Request-ID")),
		Metadata:     metadata,
	})
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + route
}

func buildResource(resourceType, route string) string {
	if trimmed := strings.TrimSpace(resourceType); trimmed != "" {
		return trimmed
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		return strings.Join(segments[2:], ".")
	}
	return strings.ReplaceAll(strings.Trim(route, "/"), "/", ".")
}

func normalizeActorKind(a Actor) ActorKind {
	if a.Kind == ActorKindUser && strings.TrimSpace(a.MemberID) != "" {
		return ActorKindUser
	}
	return ActorKindAnonymous
}
