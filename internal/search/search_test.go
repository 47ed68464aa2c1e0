package search_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/search"
)

func TestNewDefaultsCategory(t *testing.T) {
	q, err := search.New("  board game ", "")
	require.NoError(t, err)
	require.Equal(t, "board game", q.Keyword)
	require.Equal(t, search.CategoryAll, q.Category)

	q, err = search.New("x", "null")
	require.NoError(t, err)
	require.Equal(t, search.CategoryAll, q.Category)
}

func TestNewRejectsUnknownCategory(t *testing.T) {
	_, err := search.New("x", "author")
	require.Error(t, err)
}

func TestValuesRoundTrip(t *testing.T) {
	q, err := search.New("catan", "Title")
	require.NoError(t, err)
	v := q.Values()
	require.Equal(t, "catan", v.Get("k"))
	require.Equal(t, "title", v.Get("c"))
	require.Empty(t, v.Get("p"))

	back, err := search.FromValues(url.Values{"k": {"catan"}, "c": {"title"}, "p": {"3"}})
	require.NoError(t, err)
	require.Equal(t, q, back)
}
