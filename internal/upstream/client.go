// Package upstream is a typed client for the shop REST backend. Every call
// forwards the caller's Authorization header and records per-endpoint
// metrics.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/selection"
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("upstream: not found")
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("upstream: unauthorized")
	// ErrUnavailable is returned when the backend cannot be reached or the
	// circuit is open.
	ErrUnavailable = errors.New("upstream: unavailable")
)

// StatusError describes any other non-2xx response.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// Doer executes a request under the caller's context. resilience.HTTPClient
// satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Caller supplies the Authorization header to forward. auth.Principal
// satisfies it.
type Caller interface {
	AuthorizationHeader() string
}

// Client talks to the shop backend rooted at BaseURL.
type Client struct {
	BaseURL string
	HTTP    Doer
}

// New returns a client for baseURL.
func New(baseURL string, doer Doer) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: doer}
}

// NewHTTPClient returns an http.Client whose transport emits client spans.
// Per-attempt timeouts are applied by resilience.HTTPClient.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone())}
}

// Product fetches product detail with images and category names.
func (c *Client) Product(ctx context.Context, caller Caller, productID int64) (Product, error) {
	var out Product
	err := c.call(ctx, caller, "product", http.MethodGet, idPath("/api/product/product_id/", productID), nil, &out)
	return out, err
}

// Options lists the purchasable options of a product.
func (c *Client) Options(ctx context.Context, caller Caller, productID int64) ([]selection.Option, error) {
	var out []selection.Option
	err := c.call(ctx, caller, "product_options", http.MethodGet, idPath("/api/product/option/", productID), nil, &out)
	return out, err
}

// ProductLike reports whether the caller has the product in their wishlist.
func (c *Client) ProductLike(ctx context.Context, caller Caller, productID int64) (bool, error) {
	var out productLikeState
	err := c.call(ctx, caller, "product_like", http.MethodGet, idPath("/api/productLike/", productID), nil, &out)
	return out.ProductLike, err
}

// SetProductLike stores the wishlist flag together with the current selection.
func (c *Client) SetProductLike(ctx context.Context, caller Caller, productID int64, favorited bool, selected selection.Set) error {
	body := productLikeRequest{ProductID: productID, IsFavorited: favorited, SelectedOptions: selected}
	return c.call(ctx, caller, "product_like_set", http.MethodPost, "/api/productLike", body, nil)
}

// AddToCart submits the selected entries to the caller's cart.
func (c *Client) AddToCart(ctx context.Context, caller Caller, productID int64, entries []selection.Entry) error {
	if entries == nil {
		entries = []selection.Entry{}
	}
	body := cartAddRequest{ProductID: productID, SelectedOptionList: entries}
	return c.call(ctx, caller, "cart_add", http.MethodPost, "/api/cart/add", body, nil)
}

// DeleteProduct removes a product listing.
func (c *Client) DeleteProduct(ctx context.Context, caller Caller, productID int64) error {
	return c.call(ctx, caller, "product_remove", http.MethodDelete, idPath("/api/product/remove/", productID), nil, nil)
}

// Board fetches a game board post with its files.
func (c *Client) Board(ctx context.Context, caller Caller, boardID int64) (Board, error) {
	var out Board
	err := c.call(ctx, caller, "board", http.MethodGet, idPath("/api/gameboard/id/", boardID), nil, &out)
	return out, err
}

// DeleteBoard removes a game board post.
func (c *Client) DeleteBoard(ctx context.Context, caller Caller, boardID int64) error {
	return c.call(ctx, caller, "board_remove", http.MethodDelete, idPath("/api/gameboard/remove/", boardID), nil, nil)
}

// BoardLike returns the like state of a board for the caller.
func (c *Client) BoardLike(ctx context.Context, caller Caller, boardID int64) (Like, error) {
	var out Like
	err := c.call(ctx, caller, "board_like", http.MethodGet, idPath("/api/like/gameboard/", boardID), nil, &out)
	return out, err
}

// ToggleLike flips the caller's like and returns the resulting state.
func (c *Client) ToggleLike(ctx context.Context, caller Caller, boardID int64) (Like, error) {
	var out Like
	err := c.call(ctx, caller, "like_toggle", http.MethodPost, "/api/like", likeRequest{GameBoardID: boardID}, &out)
	return out, err
}

// Ping reports whether the backend answers at all. Any response short of a
// 5xx counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	err := c.call(ctx, nil, "ping", http.MethodGet, "/", nil, nil)
	if err == nil || !errors.Is(err, ErrUnavailable) && ctx.Err() == nil {
		return nil
	}
	return err
}

func (c *Client) call(ctx context.Context, caller Caller, endpoint, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		obs.Observe(obs.UpstreamLatency, obs.DurationMillis(time.Since(start)), endpoint)
		obs.Inc(obs.UpstreamRequestsTotal, endpoint, resultLabel(err))
	}()

	if c.HTTP == nil {
		return fmt.Errorf("upstream %s: client not configured: %w", endpoint, ErrUnavailable)
	}
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("upstream %s: encode: %w", endpoint, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("upstream %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != nil {
		if h := caller.AuthorizationHeader(); h != "" {
			req.Header.Set("Authorization", h)
		}
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("upstream %s: %w: %w", endpoint, ErrUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	if err := statusErr(endpoint, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream %s: decode: %w", endpoint, err)
	}
	return nil
}

func statusErr(endpoint string, resp *http.Response) error {
	switch {
	case resp.StatusCode < http.StatusBadRequest:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("upstream %s: %w", endpoint, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("upstream %s: %w", endpoint, ErrUnauthorized)
	case resp.StatusCode >= http.StatusInternalServerError:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %w", ErrUnavailable, &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))})
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, resilience.ErrOpenCircuit):
		return "circuit_open"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
