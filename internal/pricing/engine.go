package pricing

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// DefaultLocale is used when a formatter is built from an empty or unknown tag.
const DefaultLocale = "ko-KR"

// Item describes a selected line used for total calculation. A nil UnitPrice
// means the line is charged at the product base price.
type Item struct {
	Qty       int
	UnitPrice *Money
}

// Total computes what the shopper pays for the current selection.
//
// Products sold through options cost nothing until an option is picked;
// products without options always cost the base price.
func Total(hasOptions bool, items []Item, base Money) Money {
	if !hasOptions {
		return base
	}
	var total Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		total += Money(it.Qty) * Unit(it.UnitPrice, base)
	}
	return total
}

// Unit returns the price charged per unit: price when set and non-zero,
// otherwise base.
func Unit(price *Money, base Money) Money {
	if price != nil && *price != 0 {
		return *price
	}
	return base
}

// Formatter renders amounts as locale-grouped decimals without a currency symbol.
type Formatter struct {
	printer *message.Printer
	suffix  string
}

// NewFormatter builds a formatter for the BCP 47 tag. Suffix is appended by
// WithSuffix only.
func NewFormatter(locale, suffix string) Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		tag = language.MustParse(DefaultLocale)
	}
	return Formatter{printer: message.NewPrinter(tag), suffix: suffix}
}

// Format renders 1234567 as "1,234,567" for ko-KR.
func (f Formatter) Format(amount Money) string {
	p := f.printer
	if p == nil {
		p = defaultPrinter()
	}
	return p.Sprintf("%d", amount)
}

// WithSuffix renders the amount followed by the currency suffix.
func (f Formatter) WithSuffix(amount Money) string {
	return f.Format(amount) + f.suffix
}

// Suffix returns the configured currency suffix.
func (f Formatter) Suffix() string { return f.suffix }

var (
	defaultOnce sync.Once
	defaultP    *message.Printer
)

func defaultPrinter() *message.Printer {
	defaultOnce.Do(func() {
		defaultP = message.NewPrinter(language.MustParse(DefaultLocale))
	})
	return defaultP
}

// Format renders amount with the default locale.
func Format(amount Money) string {
	return defaultPrinter().Sprintf("%d", amount)
}
