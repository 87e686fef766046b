package store

import (
	"sort"
	"time"
)

// DateLayout is the layout used to render publication dates in text files
// and chapter headers.
const DateLayout = "2006-01-02"

// UnknownDate is rendered in place of a publication date when the page
// did not supply a parseable one.
const UnknownDate = "unknown"

// Article is a single blog post extracted from its page.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Body        string    `json:"body"`
	// HTML is the sanitized XHTML of the body, empty when the page gave
	// only text.
	HTML  string `json:"html,omitempty"`
	Order int    `json:"order"`
	// Strategy names the extraction strategy that supplied the body.
	Strategy string `json:"strategy,omitempty"`
}

// Dated reports whether the publication date of the article is known.
func (a Article) Dated() bool { return !a.PublishedAt.IsZero() }

// Date returns the publication date formatted with DateLayout or
// UnknownDate.
func (a Article) Date() string {
	if !a.Dated() {
		return UnknownDate
	}
	return a.PublishedAt.Format(DateLayout)
}

// Ordered returns a copy of the articles sorted newest first with Order
// set to the position in that sequence. Articles without a date go last,
// articles with equal dates keep their relative input order.
func Ordered(articles []Article) []Article {
	res := make([]Article, len(articles))
	copy(res, articles)

	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		switch {
		case a.Dated() && !b.Dated():
			return true
		case !a.Dated():
			return false
		default:
			return a.PublishedAt.After(b.PublishedAt)
		}
	})

	for i := range res {
		res[i].Order = i
	}

	return res
}
