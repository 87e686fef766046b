// Package extractor recovers the title, publication date and text of an
// article from its page markup. Pages of the blog are not uniform, so the
// extractor runs an ordered chain of strategies and merges the first
// non-empty value of every field.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/exp/slog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Semior001/blogbook/app/store"
	"github.com/Semior001/blogbook/pkg/logx"
)

// ErrNoContent is returned when no strategy managed to recover the text
// of the article.
var ErrNoContent = errors.New("no extractable content")

// DefaultTitle is used when neither the page nor its URL provide a title.
const DefaultTitle = "Untitled Article"

// Page is a parsed article page handed to strategies.
type Page struct {
	URL *url.URL
	Raw []byte
	// Meta is the document as served, scripts included.
	Meta *goquery.Document
	// Doc is the document without scripts, styles and embedded frames.
	Doc *goquery.Document
}

// Result is a partial extraction, zero fields are not recovered.
type Result struct {
	Title       string
	PublishedAt time.Time
	Body        string
	// HTML is the XHTML fragment Body was made of, if any.
	HTML string
}

// Strategy attempts to recover article fields from the page.
type Strategy interface {
	Name() string
	Extract(p *Page) Result
}

// Extractor applies strategies in order.
type Extractor struct {
	log        *slog.Logger
	strategies []Strategy
}

// New creates new Extractor with the default chain of strategies.
func New(lg *slog.Logger) *Extractor {
	if lg == nil {
		lg = slog.New(logx.NoOp())
	}

	conv := md.NewConverter("", true, &md.Options{EscapeMode: "disabled"})

	return NewWithStrategies(lg,
		permalink{},
		heading{},
		metadata{},
		container{conv: conv},
		document{},
		&readable{parser: readability.NewParser(), conv: conv},
		largestBlock{conv: conv},
	)
}

// NewWithStrategies creates new Extractor with a custom chain.
func NewWithStrategies(lg *slog.Logger, strategies ...Strategy) *Extractor {
	if lg == nil {
		lg = slog.New(logx.NoOp())
	}
	return &Extractor{log: lg, strategies: strategies}
}

// Extract builds an article from the page served at pageURL.
// The title falls back to one derived from the URL, the date is left zero
// when unknown, ErrNoContent is returned when the body is empty.
func (e *Extractor) Extract(pageURL string, raw []byte) (store.Article, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return store.Article{}, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}

	p, err := newPage(u, raw)
	if err != nil {
		return store.Article{}, err
	}

	article := store.Article{URL: pageURL}
	var titleFrom, dateFrom string

	for _, s := range e.strategies {
		res := s.Extract(p)

		if article.Title == "" && res.Title != "" {
			article.Title, titleFrom = res.Title, s.Name()
		}
		if !article.Dated() && !res.PublishedAt.IsZero() {
			article.PublishedAt, dateFrom = res.PublishedAt, s.Name()
		}
		if article.Body == "" && res.Body != "" {
			article.Body, article.HTML, article.Strategy = res.Body, res.HTML, s.Name()
		}

		if article.Title != "" && article.Dated() && article.Body != "" {
			break
		}
	}

	if article.Body == "" {
		return store.Article{}, fmt.Errorf("extract %s: %w", pageURL, ErrNoContent)
	}

	if article.Title == "" {
		article.Title, titleFrom = derivedTitle(p), "url"
	}

	e.log.Debug("article extracted",
		slog.String("url", pageURL),
		slog.String("title_from", titleFrom),
		slog.String("date_from", dateFrom),
		slog.String("body_from", article.Strategy),
		slog.Int("body_len", len(article.Body)))

	return article, nil
}

func newPage(u *url.URL, raw []byte) (*Page, error) {
	meta, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, iframe, noscript, template").Remove()

	return &Page{URL: u, Raw: raw, Meta: meta, Doc: doc}, nil
}

// derivedTitle makes a title from the last meaningful segment of the
// canonical or page URL.
func derivedTitle(p *Page) string {
	candidates := []string{}
	if href, ok := p.Meta.Find(`link[rel="canonical"]`).Attr("href"); ok {
		candidates = append(candidates, href)
	}
	candidates = append(candidates, p.URL.String())

	for _, c := range candidates {
		u, err := p.URL.Parse(strings.TrimSpace(c))
		if err != nil {
			continue
		}

		parts := strings.Split(u.Path, "/")
		for i := len(parts) - 1; i >= 0; i-- {
			part := strings.TrimSuffix(parts[i], path.Ext(parts[i]))
			if part == "" || isDigits(part) {
				continue
			}
			part = strings.NewReplacer("-", " ", "_", " ").Replace(part)
			if t := cleanTitle(part); t != "" {
				return cases.Title(language.English).String(t)
			}
		}
	}

	return DefaultTitle
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func cleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// normalize trims trailing spaces of every line and collapses runs of
// blank lines, so the text compares equal after a write and read back.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}

	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, "\n ")
}
