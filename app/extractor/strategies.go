package extractor

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"github.com/samber/lo"
	"golang.org/x/net/html"
)

// permalink takes the date from /YYYY/M/D/ in the article URL, the most
// reliable source on this blog.
type permalink struct{}

var permalinkDate = regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})/`)

func (permalink) Name() string { return "permalink" }

func (permalink) Extract(p *Page) Result {
	m := permalinkDate.FindStringSubmatch(p.URL.Path)
	if m == nil {
		return Result{}
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Result{}
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return Result{}
	}

	return Result{PublishedAt: t}
}

// heading takes the title from the post heading of the blog theme.
type heading struct{}

func (heading) Name() string { return "heading" }

func (heading) Extract(p *Page) Result {
	return Result{Title: cleanTitle(firstText(p.Doc,
		".post-header h1.post-title",
		"h1.post-title",
		"h1.entry-title",
	))}
}

// metadata reads Open Graph tags and JSON-LD descriptions.
type metadata struct{}

func (metadata) Name() string { return "metadata" }

func (metadata) Extract(p *Page) Result {
	res := Result{
		Title: cleanTitle(firstAttr(p.Meta, "content",
			`meta[property="og:title"]`,
			`meta[name="twitter:title"]`,
		)),
		PublishedAt: parseDate(firstAttr(p.Meta, "content",
			`meta[property="article:published_time"]`,
			`meta[property="og:published_time"]`,
			`meta[itemprop="datePublished"]`,
		)),
	}

	p.Meta.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}

		ld := linkedData{}
		ld.walk(v)

		if res.Title == "" {
			res.Title = cleanTitle(ld.headline)
		}
		if res.PublishedAt.IsZero() {
			res.PublishedAt = parseDate(ld.published)
		}
		if res.Body == "" {
			res.Body = normalize(ld.body)
		}

		return res.Title == "" || res.PublishedAt.IsZero() || res.Body == ""
	})

	return res
}

// linkedData collects the first article fields met in a JSON-LD tree.
type linkedData struct {
	headline  string
	published string
	body      string
}

func (ld *linkedData) walk(v any) {
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			ld.walk(item)
		}
	case map[string]any:
		take := func(dst *string, key string) {
			if s, ok := val[key].(string); ok && *dst == "" {
				*dst = s
			}
		}
		take(&ld.headline, "headline")
		take(&ld.published, "datePublished")
		take(&ld.body, "articleBody")

		keys := lo.Keys(val)
		sort.Strings(keys)
		for _, k := range keys {
			ld.walk(val[k])
		}
	}
}

// container looks for the content containers used by the blog theme.
type container struct {
	conv *md.Converter
}

var containerSelectors = []string{
	"div.post-content",
	"div.post",
	"div.article",
	"div.entry-content",
	"article",
}

func (container) Name() string { return "container" }

func (c container) Extract(p *Page) Result {
	res := Result{}

	if dt, ok := p.Doc.Find("time[datetime]").First().Attr("datetime"); ok {
		res.PublishedAt = parseDate(dt)
	}
	if res.PublishedAt.IsZero() {
		res.PublishedAt = parseDate(firstText(p.Doc, ".post-date", ".date", ".published", "time"))
	}

	for _, sel := range containerSelectors {
		found := p.Doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if body := normalize(c.conv.Convert(found)); body != "" {
			res.Body, res.HTML = body, renderXHTML(found, p.URL)
			break
		}
	}

	return res
}

// readable runs the readability algorithm over the page.
type readable struct {
	parser readability.Parser
	conv   *md.Converter
}

func (*readable) Name() string { return "readability" }

func (r *readable) Extract(p *Page) Result {
	art, err := r.parser.Parse(bytes.NewReader(p.Raw), p.URL)
	if err != nil {
		return Result{}
	}

	res := Result{Title: cleanTitle(art.Title)}

	if art.Content != "" {
		if text, err := r.conv.ConvertString(art.Content); err == nil {
			res.Body = normalize(text)
		}
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(art.Content)); err == nil && res.Body != "" {
			res.HTML = renderXHTML(doc.Find("body"), p.URL)
		}
	}
	if res.Body == "" {
		res.Body = normalize(art.TextContent)
	}

	return res
}

// document takes the title from the document title or the first heading.
type document struct{}

func (document) Name() string { return "document" }

func (document) Extract(p *Page) Result {
	if title := p.Doc.Find("title").First().Text(); strings.TrimSpace(title) != "" {
		// the blog name follows the separator
		title, _, _ = strings.Cut(title, "|")
		if t := cleanTitle(title); t != "" {
			return Result{Title: t}
		}
	}

	return Result{Title: cleanTitle(firstText(p.Doc, "h1", "h2"))}
}

// largestBlock picks the element holding the most paragraph text and
// falls back to the whole body.
type largestBlock struct {
	conv *md.Converter
}

func (largestBlock) Name() string { return "largest_block" }

func (l largestBlock) Extract(p *Page) Result {
	var best *goquery.Selection
	bestScore := 0
	scores := map[*html.Node]int{}

	p.Doc.Find("body p").Each(func(_ int, s *goquery.Selection) {
		parent := s.Parent()
		if parent.Length() == 0 {
			return
		}

		node := parent.Get(0)
		scores[node] += len(strings.TrimSpace(s.Text()))
		if scores[node] > bestScore {
			best, bestScore = parent, scores[node]
		}
	})

	if best != nil {
		if body := normalize(l.conv.Convert(best)); body != "" {
			return Result{Body: body, HTML: renderXHTML(best, p.URL)}
		}
	}

	body := p.Doc.Find("body")
	if text := normalize(l.conv.Convert(body)); text != "" {
		return Result{Body: text, HTML: renderXHTML(body, p.URL)}
	}

	return Result{Body: normalize(body.Text())}
}

func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v := strings.TrimSpace(doc.Find(sel).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

// parseDate returns zero time when s is not a recognizable date.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
