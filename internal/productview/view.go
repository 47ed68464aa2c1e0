package productview

import (
	"strings"

	"github.com/noah-isme/toko-storefront/internal/draft"
	"github.com/noah-isme/toko-storefront/internal/notice"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/rating"
	"github.com/noah-isme/toko-storefront/internal/selection"
	"github.com/noah-isme/toko-storefront/internal/upstream"
)

// Shipping fees shown on every product page.
const (
	ShippingBaseFee   pricing.Money = 3000
	ShippingRemoteFee pricing.Money = 5000
)

// View is everything the product page renders.
type View struct {
	DraftID        string          `json:"draftId"`
	ProductID      int64           `json:"productId"`
	Header         Header          `json:"header"`
	Gallery        Gallery         `json:"gallery"`
	BasePrice      pricing.Money   `json:"basePrice"`
	PriceLabel     string          `json:"priceLabel"`
	Rating         Rating          `json:"rating"`
	Shipping       Shipping        `json:"shipping"`
	Options        []OptionView    `json:"options"`
	Lines          []Line          `json:"lines"`
	SelectedLabel  string          `json:"selectedLabel"`
	Total          pricing.Money   `json:"total"`
	TotalFormatted string          `json:"totalFormatted"`
	Favorited      bool            `json:"favorited"`
	Notices        []notice.Notice `json:"notices,omitempty"`
}

// Header is the title block above the gallery.
type Header struct {
	Company      string `json:"company"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	Category     string `json:"category"`
	Subcategory  string `json:"subcategory"`
	CategoryPath string `json:"categoryPath"`
}

// Gallery lists the main and detail images with the one currently shown.
type Gallery struct {
	Images   []string `json:"images"`
	Selected int      `json:"selected"`
	Main     string   `json:"main,omitempty"`
	Details  []string `json:"details"`
}

// Rating is the star row under the title.
type Rating struct {
	Stars []rating.Star `json:"stars"`
	Label string        `json:"label"`
}

// Shipping holds the delivery fee labels.
type Shipping struct {
	BaseFee      pricing.Money `json:"baseFee"`
	BaseFeeLabel string        `json:"baseFeeLabel"`
	RemoteFee    pricing.Money `json:"remoteFee"`
	RemoteNote   string        `json:"remoteNote"`
}

// OptionView is one entry of the option picker.
type OptionView struct {
	selection.Option
	PriceLabel string `json:"priceLabel"`
	SoldOut    bool   `json:"soldOut"`
}

// Line is one selected option with its quantity controls.
type Line struct {
	OptionID      int64         `json:"optionId"`
	Name          string        `json:"name"`
	Quantity      int           `json:"quantity"`
	Stock         int           `json:"stock"`
	UnitPrice     pricing.Money `json:"unitPrice"`
	Subtotal      pricing.Money `json:"subtotal"`
	SubtotalLabel string        `json:"subtotalLabel"`
	CanIncrease   bool          `json:"canIncrease"`
}

// page is the upstream data a view is rendered from. optionsLoaded is false
// when the options fetch failed and catalog is empty for that reason only.
type page struct {
	product       upstream.Product
	catalog       selection.Catalog
	optionsLoaded bool
}

func (p page) imageCount() int { return len(p.product.Images) }

// reconcile brings the draft selection in line with the current catalog. It
// returns a notice when an entry was dropped or its quantity clamped.
func (p page) reconcile(d *draft.Draft) []notice.Notice {
	if !p.optionsLoaded {
		return nil
	}
	next, changed := d.Selection.Reconcile(p.catalog)
	d.Selection = next
	if len(changed) == 0 {
		return nil
	}
	return []notice.Notice{notice.StockChanged}
}

func render(f pricing.Formatter, d draft.Draft, pg page, notices []notice.Notice) View {
	prod := pg.product
	base := prod.Product.Price

	v := View{
		DraftID:   d.ID,
		ProductID: d.ProductID,
		Header: Header{
			Company:      prod.CompanyName,
			Name:         prod.Product.Name,
			Content:      prod.Product.Content,
			Category:     prod.CategoryName,
			Subcategory:  prod.SubcategoryName,
			CategoryPath: categoryPath(prod.CategoryName, prod.SubcategoryName),
		},
		Gallery:    gallery(prod, d.ImageIndex),
		BasePrice:  base,
		PriceLabel: f.WithSuffix(base),
		Rating:     Rating{Stars: rating.Stars(prod.Product.AverageRate), Label: rating.Display(prod.Product.AverageRate)},
		Shipping: Shipping{
			BaseFee:      ShippingBaseFee,
			BaseFeeLabel: f.WithSuffix(ShippingBaseFee),
			RemoteFee:    ShippingRemoteFee,
			RemoteNote:   "Jeju " + f.WithSuffix(ShippingRemoteFee) + ", remote islands and mountain areas " + f.WithSuffix(ShippingRemoteFee),
		},
		Options:       make([]OptionView, 0, pg.catalog.Len()),
		Lines:         []Line{},
		SelectedLabel: selection.SelectedLabel(pg.catalog, d.LastSelected),
		Favorited:     d.Favorited,
		Notices:       notices,
	}

	for _, opt := range pg.catalog.Options() {
		v.Options = append(v.Options, OptionView{Option: opt, PriceLabel: f.WithSuffix(pricing.Unit(opt.Price, base)), SoldOut: opt.Stock < 1})
	}
	for _, e := range d.Selection.Entries() {
		unit := pricing.Unit(e.Price, base)
		sub := unit * pricing.Money(e.Quantity)
		v.Lines = append(v.Lines, Line{
			OptionID:      e.ID,
			Name:          e.Name,
			Quantity:      e.Quantity,
			Stock:         e.Stock,
			UnitPrice:     unit,
			Subtotal:      sub,
			SubtotalLabel: f.WithSuffix(sub),
			CanIncrease:   e.Quantity < e.Stock,
		})
	}

	// A draft holding entries is priced per option even when the options
	// fetch failed and the catalog came back empty.
	hasOptions := pg.catalog.HasOptions() || !d.Selection.IsEmpty()
	v.Total = pricing.Total(hasOptions, d.Selection.PricingItems(), base)
	v.TotalFormatted = f.WithSuffix(v.Total)
	return v
}

func gallery(prod upstream.Product, selected int) Gallery {
	g := Gallery{Images: make([]string, 0, len(prod.Images)), Details: make([]string, 0, len(prod.DetailImages))}
	for _, img := range prod.Images {
		g.Images = append(g.Images, img.URI)
	}
	for _, img := range prod.DetailImages {
		g.Details = append(g.Details, img.URI)
	}
	if selected < 0 || selected >= len(g.Images) {
		selected = 0
	}
	g.Selected = selected
	if len(g.Images) > 0 {
		g.Main = g.Images[selected]
	}
	return g
}

func categoryPath(category, sub string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{category, sub} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " > ")
}
