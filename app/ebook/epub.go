// Package ebook assembles articles into an EPUB book and converts it to
// other formats with an external tool.
package ebook

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmaupin/go-epub"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/Semior001/blogbook/app/store"
	"github.com/Semior001/blogbook/pkg/logx"
)

var (
	// ErrNoArticles is returned when there is nothing to put into the book.
	ErrNoArticles = errors.New("no articles to assemble")
	// ErrAssembly is returned when the EPUB file could not be produced.
	ErrAssembly = errors.New("assemble epub")
)

// Book describes the assembled document.
type Book struct {
	Title  string
	Author string
	// Lang is the language code of the book, "en" by default.
	Lang string
	// Source is the URL the book is made of, it seeds the identifier.
	Source string
}

// Assembler makes EPUB documents, one chapter per article.
type Assembler struct {
	log  *slog.Logger
	book Book
}

// NewAssembler creates new Assembler.
func NewAssembler(lg *slog.Logger, book Book) *Assembler {
	if lg == nil {
		lg = slog.New(logx.NoOp())
	}
	if book.Lang == "" {
		book.Lang = "en"
	}
	return &Assembler{log: lg, book: book}
}

// Assemble writes the articles into an EPUB file at path, chapters follow
// the Order of the articles.
func (a *Assembler) Assemble(articles []store.Article, path string) error {
	if len(articles) == 0 {
		return ErrNoArticles
	}

	sorted := make([]store.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	e := epub.NewEpub(a.book.Title)
	e.SetLang(a.book.Lang)
	if a.book.Author != "" {
		e.SetAuthor(a.book.Author)
	}
	// the same source always yields the same identifier, readers treat
	// a rebuilt book as a new version of the same one
	e.SetIdentifier("urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(a.book.Source)).String())
	e.SetDescription(fmt.Sprintf("%d articles from %s", len(sorted), a.book.Source))

	for i, art := range sorted {
		filename := fmt.Sprintf("chapter_%04d.xhtml", i+1)
		if _, err := e.AddSection(chapter(art), art.Title, filename, ""); err != nil {
			return fmt.Errorf("%w: add chapter %q: %v", ErrAssembly, art.Title, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("%w: make output dir: %v", ErrAssembly, err)
	}

	if err := e.Write(path); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrAssembly, path, err)
	}

	a.log.Info("epub created", slog.String("path", path), slog.Int("chapters", len(sorted)))
	return nil
}

// chapter renders the article as an XHTML fragment: the heading, the date,
// the source link and the body markup, or a paragraph per block of text
// when the article has no markup.
func chapter(a store.Article) string {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "<h1>%s</h1>\n", html.EscapeString(a.Title))
	if a.Dated() {
		fmt.Fprintf(sb, "<p><em>%s</em></p>\n", a.Date())
	}
	fmt.Fprintf(sb, "<p>Source: <a href=\"%s\">%s</a></p>\n",
		html.EscapeString(a.URL), html.EscapeString(a.URL))

	if a.HTML != "" {
		sb.WriteString(a.HTML)
		sb.WriteString("\n")
		return sb.String()
	}

	for _, block := range strings.Split(a.Body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(lines[i])
		}
		fmt.Fprintf(sb, "<p>%s</p>\n", strings.Join(lines, "<br/>"))
	}

	return sb.String()
}
