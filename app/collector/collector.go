// Package collector discovers article URLs on the blog listing pages.
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
	"github.com/temoto/robotstxt"
	"golang.org/x/exp/slog"

	"github.com/Semior001/blogbook/app/fetcher"
	"github.com/Semior001/blogbook/pkg/logx"
)

// Fetcher retrieves page markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// nextPageSelector matches pagination links that lead to older posts.
const nextPageSelector = `a[rel="next"], link[rel="next"], .older a, a.older, .blog-list-pagination a.older-posts`

// Options defines parameters of the Collector.
type Options struct {
	// ArticlePatterns are URL fragments, one of which an article link
	// must contain.
	ArticlePatterns []string
	// ExcludePatterns are URL fragments that disqualify a link.
	ExcludePatterns []string
	// MaxPages bounds the number of listing pages visited, zero means one.
	MaxPages int
	// IgnoreRobots disables robots.txt rules.
	IgnoreRobots bool
	UserAgent    string
	Logger       *slog.Logger
}

// Collector walks the listing pages and gathers article links.
type Collector struct {
	Options
	fetcher Fetcher
}

// New creates new Collector.
func New(f Fetcher, opts Options) *Collector {
	if opts.Logger == nil {
		opts.Logger = slog.New(logx.NoOp())
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = fetcher.DefaultUserAgent
	}
	return &Collector{Options: opts, fetcher: f}
}

// Collect returns the distinct article URLs found on the listing page at
// root and the pages it paginates to, in order of first appearance.
// An error is returned only when the root page itself cannot be fetched;
// failures on later pages truncate the result.
func (c *Collector) Collect(ctx context.Context, root string) ([]string, error) {
	rootURL, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("parse listing url %q: %w", root, err)
	}

	var urls []string
	visited := map[string]bool{}
	page := rootURL

	for i := 0; page != nil && i < c.MaxPages; i++ {
		if visited[page.String()] {
			break
		}
		visited[page.String()] = true

		body, err := c.fetcher.Fetch(ctx, page.String())
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("fetch listing page: %w", err)
			}
			c.Logger.WarnCtx(ctx, "failed to fetch listing page, result is truncated",
				slog.String("page", page.String()),
				slog.Int("collected", len(urls)),
				slog.Any("err", err))
			break
		}

		links, next, err := c.parse(page, body)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("parse listing page: %w", err)
			}
			c.Logger.WarnCtx(ctx, "failed to parse listing page, result is truncated",
				slog.String("page", page.String()), slog.Any("err", err))
			break
		}

		c.Logger.DebugCtx(ctx, "listing page processed",
			slog.String("page", page.String()), slog.Int("links", len(links)))

		urls = append(urls, links...)
		page = next
	}

	urls = lo.Uniq(urls)
	urls = lo.Filter(urls, func(u string, _ int) bool { return u != rootURL.String() })

	if !c.IgnoreRobots {
		urls = c.allowed(ctx, rootURL, urls)
	}

	return urls, nil
}

// parse extracts article links and the next listing page, if any.
func (c *Collector) parse(page *url.URL, body []byte) (links []string, next *url.URL, err error) {
	if gofeed.DetectFeedType(bytes.NewReader(body)) != gofeed.FeedTypeUnknown {
		links, err = c.parseFeed(page, body)
		return links, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if u, ok := c.article(page, s.AttrOr("href", "")); ok {
			links = append(links, u)
		}
	})

	if href, ok := doc.Find(nextPageSelector).First().Attr("href"); ok {
		if u, err := page.Parse(strings.TrimSpace(href)); err == nil && u.Host == page.Host {
			u.Fragment = ""
			next = u
		}
	}

	return links, next, nil
}

func (c *Collector) parseFeed(page *url.URL, body []byte) ([]string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var links []string
	for _, item := range feed.Items {
		if u, ok := c.article(page, item.Link); ok {
			links = append(links, u)
		}
	}

	return links, nil
}

// article resolves href against the page and reports whether it is an
// article link.
func (c *Collector) article(page *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
		return "", false
	}

	u, err := page.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host != page.Host {
		return "", false
	}
	u.Fragment = ""
	res := u.String()

	contains := func(pattern string) bool { return strings.Contains(res, pattern) }

	if lo.ContainsBy(c.ExcludePatterns, contains) {
		return "", false
	}

	if len(c.ArticlePatterns) > 0 && !lo.ContainsBy(c.ArticlePatterns, contains) {
		return "", false
	}

	return res, true
}

// allowed drops the URLs disallowed by the robots.txt of the blog.
func (c *Collector) allowed(ctx context.Context, root *url.URL, urls []string) []string {
	robotsURL := (&url.URL{Scheme: root.Scheme, Host: root.Host, Path: "/robots.txt"}).String()

	status := http.StatusOK
	body, err := c.fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		// server errors count as a missing robots.txt
		var fe *fetcher.FetchError
		if !errors.As(err, &fe) || fe.StatusCode < 400 || fe.StatusCode >= 500 {
			c.Logger.DebugCtx(ctx, "robots.txt is not available, all pages allowed", slog.Any("err", err))
			return urls
		}
		status = fe.StatusCode
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		c.Logger.WarnCtx(ctx, "failed to parse robots.txt, all pages allowed", slog.Any("err", err))
		return urls
	}

	group := data.FindGroup(c.UserAgent)
	return lo.Filter(urls, func(u string, _ int) bool {
		parsed, err := url.Parse(u)
		if err != nil {
			return false
		}

		if !group.Test(parsed.RequestURI()) {
			c.Logger.InfoCtx(ctx, "article is disallowed by robots.txt", slog.String("url", u))
			return false
		}
		return true
	})
}
