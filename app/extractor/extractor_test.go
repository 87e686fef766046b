package extractor

import (
	_ "embed"
	"errors"
	"net/url"
	"testing"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/article.html
var articleHTML []byte

func TestExtractor_Extract(t *testing.T) {
	article, err := New(nil).Extract("https://blog.example/blog/2023/5/14/kafka-consumer-rebalancing", articleHTML)
	require.NoError(t, err)

	assert.Equal(t, "https://blog.example/blog/2023/5/14/kafka-consumer-rebalancing", article.URL)
	assert.Equal(t, "Kafka Consumer Rebalancing", article.Title)
	assert.Equal(t, "2023-05-14", article.Date())
	assert.Equal(t, "container", article.Strategy)
	assert.Contains(t, article.Body, "Consumer groups distribute partitions among members.")
	assert.Contains(t, article.Body, "A rebalance happens when membership changes.")
	assert.NotContains(t, article.Body, "inline script")
	assert.NotContains(t, article.Body, "Copyright")
	assert.NotContains(t, article.Body, "Home")
}

func TestExtractor_ExtractArticleContainerOnly(t *testing.T) {
	page := `<html><body><article>Hello world</article></body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/hello-world", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Hello world", article.Body)
	assert.Equal(t, "Hello World", article.Title, "title must be derived from the url")
	assert.False(t, article.Dated())
	assert.Equal(t, "unknown", article.Date())
}

func TestExtractor_ExtractKeepsPlainText(t *testing.T) {
	page := `<html><body><article><p>snake_case and 1. item *star*</p></article></body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/x", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "snake_case and 1. item *star*", article.Body)
}

func TestExtractor_ExtractMarkup(t *testing.T) {
	page := `<html><body><div class="post-content">
		<p>Read <a href="/docs" onclick="track()">the docs</a> &amp; more.</p>
		<pre><code>my_var := 1</code></pre>
		<img src="/chart.png"><p>line<br>break</p>
	</div></body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/markup", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "container", article.Strategy)
	assert.Contains(t, article.HTML, `<a href="https://blog.example/docs">the docs</a> &amp; more.`)
	assert.Contains(t, article.HTML, "<pre><code>my_var := 1</code></pre>")
	assert.Contains(t, article.HTML, "<p>line<br/>break</p>")
	assert.NotContains(t, article.HTML, "onclick")
	assert.NotContains(t, article.HTML, "<img")
	assert.Contains(t, article.Body, "my_var := 1")
}

func TestExtractor_ExtractThemeHeadingFirst(t *testing.T) {
	page := `<html><head><meta property="og:title" content="OG Title"></head><body>
		<div class="post-header"><h1 class="post-title">Theme Title</h1></div>
		<div class="post-content"><p>Text</p></div>
	</body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/x", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Theme Title", article.Title)
}

func TestExtractor_ExtractDefaultTitle(t *testing.T) {
	article, err := New(nil).Extract("https://blog.example/", []byte(`<article>Hello world</article>`))
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, article.Title)
}

func TestExtractor_ExtractCanonicalTitle(t *testing.T) {
	page := `<html><head><link rel="canonical" href="/blog/2022/3/1/the-real-slug"></head>
		<body><article>Text</article></body></html>`

	article, err := New(nil).Extract("https://blog.example/p?id=1", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "The Real Slug", article.Title)
}

func TestExtractor_ExtractMetadata(t *testing.T) {
	page := `<html><head>
		<script type="application/ld+json">{
			"@context": "https://schema.org",
			"@graph": [{
				"@type": "BlogPosting",
				"headline": "Structured Headline",
				"datePublished": "2021-11-02",
				"articleBody": "Body from structured data."
			}]
		}</script>
	</head><body><p>Some other text on the page.</p></body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/structured", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Structured Headline", article.Title)
	assert.Equal(t, "2021-11-02", article.Date())
	assert.Equal(t, "Body from structured data.", article.Body)
	assert.Equal(t, "metadata", article.Strategy)
}

func TestExtractor_ExtractFieldsFromDifferentStrategies(t *testing.T) {
	page := `<html><head>
		<meta property="og:title" content="Title From Meta">
		<title>Document Title | Blog</title>
	</head><body>
		<time datetime="2020-02-03">Feb 3</time>
		<div class="entry-content"><p>Body from container.</p></div>
	</body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/mixed", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Title From Meta", article.Title)
	assert.Equal(t, "2020-02-03", article.Date())
	assert.Equal(t, "Body from container.", article.Body)
	assert.Equal(t, "container", article.Strategy)
}

func TestExtractor_ExtractDocumentTitle(t *testing.T) {
	page := `<html><head><title>  Just The Title |  Blog Name </title></head>
		<body><div class="post"><p>Text</p></div></body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/x", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Just The Title", article.Title)
}

func TestExtractor_ExtractFallsBackWithoutContainers(t *testing.T) {
	page := `<html><body>
		<div id="sidebar"><p>Short.</p></div>
		<div id="main">
			<p>The first paragraph of the article is quite long.</p>
			<p>The second paragraph is long as well.</p>
		</div>
	</body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/plain", []byte(page))
	require.NoError(t, err)
	assert.Contains(t, article.Body, "The first paragraph of the article is quite long.")
	assert.Contains(t, article.Body, "The second paragraph is long as well.")
	assert.NotEmpty(t, article.Strategy)
}

func TestExtractor_ExtractLargestBlock(t *testing.T) {
	page := `<html><body>
		<div id="sidebar"><p>Short.</p></div>
		<div id="main">
			<p>The first paragraph of the article is quite long.</p>
			<p>The second paragraph is long as well.</p>
		</div>
	</body></html>`

	e := NewWithStrategies(nil, largestBlock{conv: md.NewConverter("", true, nil)})

	article, err := e.Extract("https://blog.example/blog/plain", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "largest_block", article.Strategy)
	assert.Contains(t, article.Body, "The first paragraph of the article is quite long.")
	assert.NotContains(t, article.Body, "Short.")
}

func TestExtractor_ExtractBareText(t *testing.T) {
	article, err := New(nil).Extract("https://blog.example/blog/bare", []byte(`<html><body>just some words</body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "just some words", article.Body)
}

func TestExtractor_ExtractNoContent(t *testing.T) {
	pages := []string{
		``,
		`<html><head><title>Only a title</title></head><body></body></html>`,
		`<html><body><script>var a = 1;</script><style>p{}</style></body></html>`,
		`<html><body>   <div> </div> </body></html>`,
	}

	for _, page := range pages {
		_, err := New(nil).Extract("https://blog.example/blog/empty", []byte(page))
		assert.True(t, errors.Is(err, ErrNoContent), "page %q: %v", page, err)
	}
}

func TestExtractor_ExtractPermalinkDate(t *testing.T) {
	page := `<html><head><meta property="article:published_time" content="2019-01-01"></head>
		<body><article>Text</article></body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/2023/7/9/slug", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 7, 9, 0, 0, 0, 0, time.UTC), article.PublishedAt)
}

func TestExtractor_ExtractUnparseableDate(t *testing.T) {
	page := `<html><body><span class="post-date">sometime last spring</span><article>Text</article></body></html>`

	article, err := New(nil).Extract("https://blog.example/blog/slug", []byte(page))
	require.NoError(t, err)
	assert.False(t, article.Dated())
	assert.Equal(t, "Text", article.Body)
}

func TestPermalink(t *testing.T) {
	tbl := []struct {
		path string
		want time.Time
	}{
		{path: "/blog/2023/1/15/slug", want: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)},
		{path: "/blog/2023/12/01/slug", want: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)},
		{path: "/blog/2023/13/01/slug"},
		{path: "/blog/2023/2/30/slug"},
		{path: "/blog/slug"},
	}

	for _, tt := range tbl {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			p, err := newPage(mustURL(t, "https://blog.example"+tt.path), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, permalink{}.Extract(p).PublishedAt)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\n\nb\nc", normalize("\n\n a\r\n\n\n\n\nb  \nc\t\n\n"))
	assert.Equal(t, "x y", normalize("x y"))
	assert.Equal(t, "", normalize(" \n \n"))
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}
