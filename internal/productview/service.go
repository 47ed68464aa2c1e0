// Package productview serves the product detail page: option selection,
// cart total, wishlist toggle, add to cart and delete.
package productview

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/cache"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/draft"
	"github.com/noah-isme/toko-storefront/internal/lock"
	"github.com/noah-isme/toko-storefront/internal/notice"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/selection"
	"github.com/noah-isme/toko-storefront/internal/upstream"
)

type backend interface {
	Product(ctx context.Context, caller upstream.Caller, productID int64) (upstream.Product, error)
	Options(ctx context.Context, caller upstream.Caller, productID int64) ([]selection.Option, error)
	ProductLike(ctx context.Context, caller upstream.Caller, productID int64) (bool, error)
	SetProductLike(ctx context.Context, caller upstream.Caller, productID int64, favorited bool, selected selection.Set) error
	AddToCart(ctx context.Context, caller upstream.Caller, productID int64, entries []selection.Entry) error
	DeleteProduct(ctx context.Context, caller upstream.Caller, productID int64) error
}

// Service orchestrates upstream fetches, draft state and view rendering.
type Service struct {
	upstream  backend
	drafts    *draft.Store
	cache     *cache.Cache
	formatter pricing.Formatter
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Upstream  backend
	Drafts    *draft.Store
	Cache     *cache.Cache
	Formatter pricing.Formatter
}

// NewService validates cfg and builds a Service. Cache is optional.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("productview: upstream is required")
	}
	if cfg.Drafts == nil {
		return nil, errors.New("productview: draft store is required")
	}
	return &Service{upstream: cfg.Upstream, drafts: cfg.Drafts, cache: cfg.Cache, formatter: cfg.Formatter}, nil
}

// Open loads the product page and starts a new draft for it. Product,
// options and favorite state are fetched concurrently; only a product
// failure fails the call.
func (s *Service) Open(ctx context.Context, p auth.Principal, productID int64) (View, error) {
	pg, favorited, err := s.load(ctx, p, productID, true)
	if err != nil {
		return View{}, err
	}
	d, err := s.drafts.Create(ctx, draft.Draft{ProductID: productID, Favorited: favorited})
	if err != nil {
		return View{}, fmt.Errorf("create draft: %w", err)
	}
	return render(s.formatter, d, pg, nil), nil
}

// View re-renders an open draft.
func (s *Service) View(ctx context.Context, p auth.Principal, draftID string) (View, error) {
	d, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return View{}, mapErr(err)
	}
	pg, _, err := s.load(ctx, p, d.ProductID, false)
	if err != nil {
		return View{}, err
	}
	return render(s.formatter, d, pg, pg.reconcile(&d)), nil
}

// Select picks an option with quantity 1, replacing any earlier pick of the
// same option.
func (s *Service) Select(ctx context.Context, p auth.Principal, draftID string, optionID int64) (View, error) {
	return s.mutate(ctx, p, draftID, "select", func(d *draft.Draft, pg page) (*notice.Notice, error) {
		if !pg.optionsLoaded {
			return nil, common.BadGateway("product options unavailable", nil)
		}
		next, err := d.Selection.Select(pg.catalog, optionID)
		switch {
		case errors.Is(err, selection.ErrOutOfStock):
			n := notice.Errorf("%s is sold out.", optionName(pg.catalog, optionID))
			return &n, nil
		case err != nil:
			return nil, err
		}
		d.Selection = next
		d.LastSelected = &optionID
		return nil, nil
	})
}

// Remove drops an option from the selection.
func (s *Service) Remove(ctx context.Context, p auth.Principal, draftID string, optionID int64) (View, error) {
	return s.mutate(ctx, p, draftID, "remove", func(d *draft.Draft, _ page) (*notice.Notice, error) {
		d.Selection = d.Selection.Remove(optionID)
		return nil, nil
	})
}

// Increase adds one unit. At the stock limit the selection is unchanged and
// the view carries a stock notice.
func (s *Service) Increase(ctx context.Context, p auth.Principal, draftID string, optionID int64) (View, error) {
	return s.mutate(ctx, p, draftID, "increase", func(d *draft.Draft, _ page) (*notice.Notice, error) {
		next, err := d.Selection.Increase(optionID)
		if errors.Is(err, selection.ErrStockExceeded) {
			n := notice.StockExceeded
			return &n, nil
		}
		if err != nil {
			return nil, err
		}
		d.Selection = next
		return nil, nil
	})
}

// Decrease removes one unit; the last unit removes the line.
func (s *Service) Decrease(ctx context.Context, p auth.Principal, draftID string, optionID int64) (View, error) {
	return s.mutate(ctx, p, draftID, "decrease", func(d *draft.Draft, _ page) (*notice.Notice, error) {
		d.Selection = d.Selection.Decrease(optionID)
		return nil, nil
	})
}

// SelectImage switches the main gallery image.
func (s *Service) SelectImage(ctx context.Context, p auth.Principal, draftID string, index int) (View, error) {
	return s.mutate(ctx, p, draftID, "image", func(d *draft.Draft, pg page) (*notice.Notice, error) {
		if index < 0 || index >= pg.imageCount() {
			return nil, common.Unprocessable("INVALID_IMAGE", fmt.Sprintf("image %d does not exist", index), nil)
		}
		d.ImageIndex = index
		return nil, nil
	})
}

// ToggleFavorite flips the wishlist flag optimistically and persists it
// before telling the backend. When the backend rejects the change the flag
// is restored and the view carries a login notice.
func (s *Service) ToggleFavorite(ctx context.Context, p auth.Principal, draftID string) (View, error) {
	current, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return View{}, mapErr(err)
	}
	pg, _, err := s.load(ctx, p, current.ProductID, false)
	if err != nil {
		return View{}, err
	}

	var (
		out        draft.Draft
		n          notice.Notice
		reconciled []notice.Notice
	)
	err = s.drafts.Locker.WithLock(ctx, draftID, func(ctx context.Context) error {
		d, err := s.drafts.Get(ctx, draftID)
		if err != nil {
			return err
		}
		reconciled = pg.reconcile(&d)
		prev := d.Favorited
		d.Favorited = !prev
		if err := s.drafts.Put(ctx, d); err != nil {
			return err
		}

		if err := s.upstream.SetProductLike(ctx, p, d.ProductID, d.Favorited, d.Selection); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("product_id", d.ProductID).Msg("favorite toggle rolled back")
			obs.Inc(obs.FavoriteToggleTotal, "rolled_back")
			d.Favorited = prev
			if err := s.drafts.Put(context.WithoutCancel(ctx), d); err != nil {
				return err
			}
			n = notice.LoginRequired
			out = d
			return nil
		}

		obs.Inc(obs.FavoriteToggleTotal, "ok")
		if d.Favorited {
			n = notice.Successf("Saved to your wishlist.")
		} else {
			n = notice.Successf("Removed from your wishlist.")
		}
		out = d
		return nil
	})
	if err != nil {
		return View{}, mapErr(err)
	}
	return render(s.formatter, out, pg, append(reconciled, n)), nil
}

// AddToCart submits the current selection. The selection is kept either way.
func (s *Service) AddToCart(ctx context.Context, p auth.Principal, draftID string) (View, error) {
	d, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return View{}, mapErr(err)
	}
	pg, _, err := s.load(ctx, p, d.ProductID, false)
	if err != nil {
		return View{}, err
	}

	notices := pg.reconcile(&d)
	var n notice.Notice
	if err := s.upstream.AddToCart(ctx, p, d.ProductID, d.Selection.Entries()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("product_id", d.ProductID).Msg("add to cart failed")
		obs.Inc(obs.CartAddTotal, "error")
		common.ReleaseIdempotencyKey(ctx)
		n = notice.Errorf("Could not add the selection to your cart.")
	} else {
		obs.Inc(obs.CartAddTotal, "ok")
		n = notice.Successf("Added to your cart.")
	}
	return render(s.formatter, d, pg, append(notices, n)), nil
}

// DeleteResult reports the outcome of a product delete.
type DeleteResult struct {
	Deleted bool            `json:"deleted"`
	Notices []notice.Notice `json:"notices"`
}

// Delete removes the product listing upstream and drops its cached payloads.
func (s *Service) Delete(ctx context.Context, p auth.Principal, productID int64) (DeleteResult, error) {
	if err := s.upstream.DeleteProduct(ctx, p, productID); err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return DeleteResult{}, common.NotFound("product not found", err)
		}
		zerolog.Ctx(ctx).Warn().Err(err).Int64("product_id", productID).Msg("delete product failed")
		return DeleteResult{Notices: []notice.Notice{notice.Errorf("Something went wrong while deleting product %d.", productID)}}, nil
	}
	if err := s.cache.Delete(ctx, cache.KeyProduct(productID), cache.KeyOptions(productID)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("product_id", productID).Msg("cache invalidation failed")
	}
	return DeleteResult{Deleted: true, Notices: []notice.Notice{notice.Successf("Product %d has been deleted.", productID)}}, nil
}

// Discard drops the draft when the shopper leaves the page.
func (s *Service) Discard(ctx context.Context, draftID string) error {
	return s.drafts.Delete(ctx, draftID)
}

type mutation func(d *draft.Draft, pg page) (*notice.Notice, error)

func (s *Service) mutate(ctx context.Context, p auth.Principal, draftID, action string, fn mutation) (View, error) {
	current, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return View{}, mapErr(err)
	}
	pg, _, err := s.load(ctx, p, current.ProductID, false)
	if err != nil {
		return View{}, err
	}

	var (
		n          *notice.Notice
		reconciled []notice.Notice
	)
	d, err := s.drafts.Update(ctx, draftID, func(d *draft.Draft) error {
		reconciled = pg.reconcile(d)
		var err error
		n, err = fn(d, pg)
		return err
	})
	if err != nil {
		obs.Inc(obs.SelectionEventsTotal, action, "error")
		return View{}, mapErr(err)
	}
	notices := reconciled
	result := "ok"
	if n != nil {
		notices = append(notices, *n)
		result = "rejected"
	}
	obs.Inc(obs.SelectionEventsTotal, action, result)
	return render(s.formatter, d, pg, notices), nil
}

// load fetches the page data concurrently. Options degrade to none and the
// favorite flag to false; a product failure is returned as an AppError.
func (s *Service) load(ctx context.Context, p auth.Principal, productID int64, withFavorite bool) (page, bool, error) {
	var (
		product       upstream.Product
		options       []selection.Option
		optionsLoaded bool
		favorited     bool
	)
	log := zerolog.Ctx(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		product, err = cache.Fetch(gctx, s.cache, "product", cache.KeyProduct(productID), func(ctx context.Context) (upstream.Product, error) {
			return s.upstream.Product(ctx, p, productID)
		})
		return err
	})
	g.Go(func() error {
		opts, err := cache.Fetch(gctx, s.cache, "options", cache.KeyOptions(productID), func(ctx context.Context) ([]selection.Option, error) {
			return s.upstream.Options(ctx, p, productID)
		})
		if err != nil {
			log.Warn().Err(err).Int64("product_id", productID).Msg("options unavailable")
			return nil
		}
		options, optionsLoaded = opts, true
		return nil
	})
	if withFavorite {
		g.Go(func() error {
			fav, err := s.upstream.ProductLike(gctx, p, productID)
			if err != nil {
				log.Info().Err(err).Int64("product_id", productID).Msg("favorite state unavailable")
				return nil
			}
			favorited = fav
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return page{}, false, mapErr(err)
	}
	return page{product: product, catalog: selection.NewCatalog(options), optionsLoaded: optionsLoaded}, favorited, nil
}

func optionName(c selection.Catalog, id int64) string {
	if opt, ok := c.Lookup(id); ok && opt.Name != "" {
		return opt.Name
	}
	return fmt.Sprintf("Option %d", id)
}

func mapErr(err error) error {
	var appErr *common.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, draft.ErrNotFound):
		return common.NotFound("draft not found", err)
	case errors.Is(err, upstream.ErrNotFound):
		return common.NotFound("product not found", err)
	case errors.Is(err, selection.ErrUnknownOption):
		return common.Unprocessable("UNKNOWN_OPTION", "option is not offered for this product", err)
	case errors.Is(err, lock.ErrTimeout):
		return common.NewAppError("DRAFT_BUSY", "draft is being updated, retry shortly", http.StatusConflict, err)
	case errors.Is(err, upstream.ErrUnavailable), errors.Is(err, resilience.ErrOpenCircuit), errors.Is(err, upstream.ErrUnauthorized):
		return common.BadGateway("shop backend unavailable", err)
	default:
		var se *upstream.StatusError
		if errors.As(err, &se) {
			return common.BadGateway("shop backend rejected the request", err)
		}
		return err
	}
}
