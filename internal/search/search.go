// Package search normalises the product/board search box input.
package search

import (
	"net/url"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

// Category limits which field the keyword is matched against.
type Category string

const (
	CategoryAll     Category = "all"
	CategoryTitle   Category = "title"
	CategoryContent Category = "content"
)

// Query parameters carried in the page URL.
const (
	KeywordParam  = "k"
	CategoryParam = "c"
)

// Query is a validated search request.
type Query struct {
	Keyword  string   `json:"keyword" validate:"max=100"`
	Category Category `json:"category" validate:"oneof=all title content"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// New trims the inputs and defaults an empty category to all.
func New(keyword, category string) (Query, error) {
	q := Query{
		Keyword:  strings.TrimSpace(keyword),
		Category: Category(strings.ToLower(strings.TrimSpace(category))),
	}
	if q.Category == "" || q.Category == "null" {
		q.Category = CategoryAll
	}
	if err := validatorInstance().Struct(q); err != nil {
		return Query{}, err
	}
	return q, nil
}

// FromValues reads k and c from the query string.
func FromValues(v url.Values) (Query, error) {
	return New(v.Get(KeywordParam), v.Get(CategoryParam))
}

// Values encodes the query. The page parameter is deliberately absent so a
// new search starts on the first page.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set(KeywordParam, q.Keyword)
	cat := q.Category
	if cat == "" {
		cat = CategoryAll
	}
	v.Set(CategoryParam, string(cat))
	return v
}
