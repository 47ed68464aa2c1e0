// Package gameboard serves the game board post page and its like button.
package gameboard

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/notice"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/upstream"
)

// LoginHint is shown next to the like button for anonymous visitors.
const LoginHint = "Please log in"

type backend interface {
	Board(ctx context.Context, caller upstream.Caller, boardID int64) (upstream.Board, error)
	DeleteBoard(ctx context.Context, caller upstream.Caller, boardID int64) error
	BoardLike(ctx context.Context, caller upstream.Caller, boardID int64) (upstream.Like, error)
	ToggleLike(ctx context.Context, caller upstream.Caller, boardID int64) (upstream.Like, error)
}

// View is the rendered board post.
type View struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	Count        int64           `json:"count"`
	MemberID     string          `json:"memberId"`
	RegTime      string          `json:"regTime"`
	RegTimeLabel string          `json:"regTimeLabel"`
	Files        []File          `json:"files"`
	Like         *LikeState      `json:"like"`
	CanEdit      bool            `json:"canEdit"`
	CanDelete    bool            `json:"canDelete"`
	LikeHint     string          `json:"likeHint,omitempty"`
	Notices      []notice.Notice `json:"notices,omitempty"`
}

// File is an attachment on a board post.
type File struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LikeState is the heart button. A nil state means it is still unknown.
type LikeState struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

// LikeResult answers a like toggle. Like is nil when the toggle failed and
// the client should keep what it shows.
type LikeResult struct {
	Like    *LikeState      `json:"like"`
	Notices []notice.Notice `json:"notices,omitempty"`
}

// DeleteResult reports the outcome of a board delete.
type DeleteResult struct {
	Deleted bool            `json:"deleted"`
	Notices []notice.Notice `json:"notices"`
}

// Service renders board pages.
type Service struct {
	upstream backend
	location *time.Location
}

// NewService builds a Service. A nil location renders times in UTC.
func NewService(b backend, loc *time.Location) (*Service, error) {
	if b == nil {
		return nil, errors.New("gameboard: upstream is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{upstream: b, location: loc}, nil
}

// Open fetches the board and its like state concurrently. A like failure
// leaves the state unknown.
func (s *Service) Open(ctx context.Context, p auth.Principal, boardID int64) (View, error) {
	var (
		board upstream.Board
		like  *LikeState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		board, err = s.upstream.Board(gctx, p, boardID)
		return err
	})
	g.Go(func() error {
		l, err := s.upstream.BoardLike(gctx, p, boardID)
		if err != nil {
			zerolog.Ctx(ctx).Info().Err(err).Int64("board_id", boardID).Msg("like state unavailable")
			return nil
		}
		like = &LikeState{Liked: l.Like, Count: l.Count}
		return nil
	})
	if err := g.Wait(); err != nil {
		return View{}, mapErr(err)
	}

	v := View{
		ID:           board.ID,
		Title:        board.Title,
		Content:      board.Content,
		Count:        board.Count,
		MemberID:     board.MemberID.String(),
		RegTime:      board.RegTime,
		RegTimeLabel: s.formatTime(board.RegTime),
		Files:        make([]File, 0, len(board.Files)),
		Like:         like,
		CanEdit:      p.HasAccess(board.MemberID.String()),
		CanDelete:    p.HasAccess(board.MemberID.String()),
	}
	for _, f := range board.Files {
		v.Files = append(v.Files, File{ID: f.ID, Name: f.Name, URL: f.URL})
	}
	if !p.IsAuthenticated() {
		v.LikeHint = LoginHint
	}
	return v, nil
}

// ToggleLike flips the caller's like. The backend's answer replaces the
// like state; on failure the state is left to the client.
func (s *Service) ToggleLike(ctx context.Context, p auth.Principal, boardID int64) (LikeResult, error) {
	l, err := s.upstream.ToggleLike(ctx, p, boardID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return LikeResult{}, common.NotFound("board not found", err)
		}
		zerolog.Ctx(ctx).Info().Err(err).Int64("board_id", boardID).Msg("like toggle failed")
		obs.Inc(obs.LikeToggleTotal, "error")
		return LikeResult{Notices: []notice.Notice{notice.Errorf("Please log in to like posts.")}}, nil
	}
	obs.Inc(obs.LikeToggleTotal, "ok")
	return LikeResult{Like: &LikeState{Liked: l.Like, Count: l.Count}}, nil
}

// Delete removes the board post. Only the author or an admin may delete.
func (s *Service) Delete(ctx context.Context, p auth.Principal, boardID int64) (DeleteResult, error) {
	board, err := s.upstream.Board(ctx, p, boardID)
	if err != nil {
		return DeleteResult{}, mapErr(err)
	}
	if !p.HasAccess(board.MemberID.String()) {
		return DeleteResult{}, common.Forbidden("only the author may delete this post")
	}
	if err := s.upstream.DeleteBoard(ctx, p, boardID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("board_id", boardID).Msg("delete board failed")
		return DeleteResult{Notices: []notice.Notice{notice.Errorf("Failed to delete post %d.", boardID)}}, nil
	}
	return DeleteResult{Deleted: true, Notices: []notice.Notice{notice.Successf("Post %d has been deleted.", boardID)}}, nil
}

var regTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// formatTime renders the backend timestamp in the service location. Values
// without a zone are taken as already local. Unparseable input is returned
// as is.
func (s *Service) formatTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range regTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, s.location); err == nil {
			return t.In(s.location).Format("2006-01-02 15:04:05")
		}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).In(s.location).Format("2006-01-02 15:04:05")
	}
	return raw
}

func mapErr(err error) error {
	var se *upstream.StatusError
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		return common.NotFound("board not found", err)
	case errors.Is(err, upstream.ErrUnavailable), errors.Is(err, resilience.ErrOpenCircuit),
		errors.Is(err, upstream.ErrUnauthorized), errors.As(err, &se):
		return common.BadGateway("shop backend unavailable", err)
	default:
		return err
	}
}
