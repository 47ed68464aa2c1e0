// Package pagination turns page metadata into page links.
package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

// PageParam is the query parameter carrying the page number.
const PageParam = "p"

// PageInfo describes the visible window of pages. Prev and Next are nil when
// there is no such page.
type PageInfo struct {
	Current int  `json:"currentPageNumber"`
	Prev    *int `json:"prevPageNumber,omitempty"`
	Next    *int `json:"nextPageNumber,omitempty"`
	Start   int  `json:"startPageNumber"`
	End     int  `json:"endPageNumber"`
	Last    int  `json:"lastPageNumber,omitempty"`
}

// LinkKind distinguishes navigation arrows from numbered pages.
type LinkKind string

const (
	KindPrev LinkKind = "prev"
	KindPage LinkKind = "page"
	KindNext LinkKind = "next"
)

// Link is a single page button.
type Link struct {
	Kind   LinkKind `json:"kind"`
	Page   int      `json:"page"`
	Label  string   `json:"label"`
	Active bool     `json:"active"`
	Query  string   `json:"query"`
}

// MaxLinks bounds the number of numbered links produced for one window.
const MaxLinks = 50

// Links builds the prev, numbered and next links for info. base is merged into
// every link so search parameters survive page changes.
func Links(info PageInfo, base url.Values) []Link {
	start, end := info.Start, info.End
	if start < 1 {
		start = 1
	}
	if end < start {
		end = start - 1
	}
	if end-start+1 > MaxLinks {
		end = start + MaxLinks - 1
	}

	links := make([]Link, 0, end-start+3)
	if info.Prev != nil && *info.Prev > 0 {
		links = append(links, Link{Kind: KindPrev, Page: *info.Prev, Label: "<", Query: withPage(base, *info.Prev)})
	}
	for p := start; p <= end; p++ {
		links = append(links, Link{
			Kind:   KindPage,
			Page:   p,
			Label:  strconv.Itoa(p),
			Active: p == info.Current,
			Query:  withPage(base, p),
		})
	}
	if info.Next != nil && *info.Next > 0 {
		links = append(links, Link{Kind: KindNext, Page: *info.Next, Label: ">", Query: withPage(base, *info.Next)})
	}
	return links
}

// Compute derives a PageInfo for page out of total items split into perPage
// sized pages, showing window page numbers at a time.
func Compute(page, total, perPage, window int) PageInfo {
	if perPage < 1 {
		perPage = 10
	}
	if window < 1 {
		window = 10
	}
	last := (total + perPage - 1) / perPage
	if last < 1 {
		last = 1
	}
	if page < 1 {
		page = 1
	}
	if page > last {
		page = last
	}
	start := (page-1)/window*window + 1
	end := start + window - 1
	if end > last {
		end = last
	}
	info := PageInfo{Current: page, Start: start, End: end, Last: last}
	if start > 1 {
		prev := start - 1
		info.Prev = &prev
	}
	if end < last {
		next := end + 1
		info.Next = &next
	}
	return info
}

// ParsePage reads the page number from q, defaulting to 1.
func ParsePage(q url.Values) int {
	v := strings.TrimSpace(q.Get(PageParam))
	if v == "" {
		return 1
	}
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 {
		return 1
	}
	return p
}

func withPage(base url.Values, page int) string {
	q := url.Values{}
	for k, vs := range base {
		q[k] = append([]string(nil), vs...)
	}
	q.Set(PageParam, strconv.Itoa(page))
	return q.Encode()
}
