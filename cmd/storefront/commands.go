package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-storefront/internal/app"
	"github.com/noah-isme/toko-storefront/internal/auth"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/pagination"
	"github.com/noah-isme/toko-storefront/internal/search"
)

var productCmd = &cobra.Command{
	Use:   "product <id>",
	Short: "Open a product page and apply option selections",
	Long: `Opens a draft for the product, applies every --select in order and prints
the resulting view. A selection is an option id, optionally followed by a
quantity: --select 3 --select 4:2.`,
	Args: cobra.ExactArgs(1),
	RunE: runProduct,
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Work with game board posts",
}

var boardViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Print a board post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, args, func(ctx context.Context, env *session, id int64) (any, error) {
			return env.deps.Boards.Open(ctx, env.principal, id)
		})
	},
}

var boardLikeCmd = &cobra.Command{
	Use:   "like <id>",
	Short: "Toggle the like on a board post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, args, func(ctx context.Context, env *session, id int64) (any, error) {
			return env.deps.Boards.ToggleLike(ctx, env.principal, id)
		})
	},
}

var boardDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a board post you wrote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, args, func(ctx context.Context, env *session, id int64) (any, error) {
			return env.deps.Boards.Delete(ctx, env.principal, id)
		})
	},
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Print the page buttons for a search result list",
	Args:  cobra.NoArgs,
	RunE:  runLinks,
}

var (
	selections []string
	imageIndex int
	keepDraft  bool
	addToCart  bool

	linkPage     int
	linkTotal    int
	linkSize     int
	linkWindow   int
	linkKeyword  string
	linkCategory string
)

func init() {
	productCmd.Flags().StringArrayVar(&selections, "select", nil, "option id[:quantity] to select, repeatable")
	productCmd.Flags().IntVar(&imageIndex, "image", -1, "gallery image to show")
	productCmd.Flags().BoolVar(&keepDraft, "keep", false, "keep the draft instead of discarding it")
	productCmd.Flags().BoolVar(&addToCart, "cart", false, "add the selection to the cart")

	linksCmd.Flags().IntVar(&linkPage, "page", 1, "current page")
	linksCmd.Flags().IntVar(&linkTotal, "total", 0, "total number of results")
	linksCmd.Flags().IntVar(&linkSize, "size", 10, "results per page")
	linksCmd.Flags().IntVar(&linkWindow, "window", 10, "page buttons per block")
	linksCmd.Flags().StringVarP(&linkKeyword, "keyword", "k", "", "search keyword")
	linksCmd.Flags().StringVarP(&linkCategory, "category", "c", "", "search category (title|content)")
}

// session holds what a command needs to call the page services.
type session struct {
	deps      *app.Dependencies
	principal auth.Principal
	logger    zerolog.Logger
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if verbose {
		logger = obs.NewLogger("console", cfg.Obs.LogLevel, os.Stderr)
	}
	principal, err := resolvePrincipal(cfg, token)
	if err != nil {
		return nil, err
	}
	deps, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		return nil, err
	}
	return &session{deps: deps, principal: principal, logger: logger}, nil
}

func resolvePrincipal(cfg *config.Config, raw string) (auth.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return auth.Anonymous(), nil
	}
	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		return auth.Principal{}, err
	}
	p, err := verifier.Verify(raw)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("invalid --token: %w", err)
	}
	return p, nil
}

func runProduct(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	steps, err := parseSelections(selections)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	env, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = env.deps.Close() }()
	ctx = env.logger.WithContext(ctx)

	products := env.deps.Products
	view, err := products.Open(ctx, env.principal, id)
	if err != nil {
		return err
	}
	if !keepDraft {
		defer func() { _ = products.Discard(context.WithoutCancel(ctx), view.DraftID) }()
	}

	for _, step := range steps {
		if view, err = products.Select(ctx, env.principal, view.DraftID, step.optionID); err != nil {
			return err
		}
		for range step.quantity - 1 {
			if view, err = products.Increase(ctx, env.principal, view.DraftID, step.optionID); err != nil {
				return err
			}
		}
	}
	if imageIndex >= 0 {
		if view, err = products.SelectImage(ctx, env.principal, view.DraftID, imageIndex); err != nil {
			return err
		}
	}
	if addToCart {
		if view, err = products.AddToCart(ctx, env.principal, view.DraftID); err != nil {
			return err
		}
	}
	return printJSON(cmd.OutOrStdout(), view)
}

func withBoard(cmd *cobra.Command, args []string, fn func(context.Context, *session, int64) (any, error)) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	env, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = env.deps.Close() }()
	ctx = env.logger.WithContext(ctx)

	out, err := fn(ctx, env, id)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runLinks(cmd *cobra.Command, _ []string) error {
	query, err := search.New(linkKeyword, linkCategory)
	if err != nil {
		return err
	}
	info := pagination.Compute(linkPage, max(linkTotal, 0), linkSize, linkWindow)
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"pageInfo": info,
		"links":    pagination.Links(info, query.Values()),
	})
}

type selectStep struct {
	optionID int64
	quantity int
}

func parseSelections(raw []string) ([]selectStep, error) {
	steps := make([]selectStep, 0, len(raw))
	for _, s := range raw {
		idPart, qtyPart, hasQty := strings.Cut(strings.TrimSpace(s), ":")
		id, err := parseID(idPart)
		if err != nil {
			return nil, fmt.Errorf("--select %q: %w", s, err)
		}
		qty := 1
		if hasQty {
			qty, err = strconv.Atoi(strings.TrimSpace(qtyPart))
			if err != nil || qty < 1 {
				return nil, fmt.Errorf("--select %q: quantity must be a positive number", s)
			}
		}
		steps = append(steps, selectStep{optionID: id, quantity: qty})
	}
	return steps, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
