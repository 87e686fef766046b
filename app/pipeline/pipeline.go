// Package pipeline runs the whole download: it collects links, fetches and
// extracts every article, writes them down and builds the ebooks.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/Semior001/blogbook/app/logging"
	"github.com/Semior001/blogbook/app/store"
	"github.com/Semior001/blogbook/pkg/logx"
)

//go:generate moq -out mock_collector.go . Collector
//go:generate moq -out mock_fetcher.go . Fetcher
//go:generate moq -out mock_converter.go . Converter

// Stage names.
const (
	StageCollecting = "collecting_links"
	StageFetching   = "fetching"
	StageWriting    = "writing"
	StageAssembling = "assembling"
	StageConverting = "converting"
)

// StageError is a fatal error of the run, tagged with the stage it
// happened at.
type StageError struct {
	Stage string
	Err   error
}

// Error returns the string representation of the error.
func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }

// Collector gathers article URLs from the listing.
type Collector interface {
	Collect(ctx context.Context, root string) ([]string, error)
}

// Fetcher retrieves the page markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor makes an article out of the page markup.
type Extractor interface {
	Extract(pageURL string, raw []byte) (store.Article, error)
}

// Writer persists a single article and returns the file it went to.
type Writer interface {
	Write(a store.Article) (string, error)
}

// Assembler builds the EPUB book.
type Assembler interface {
	Assemble(articles []store.Article, path string) error
}

// Converter converts the EPUB book into another format.
type Converter interface {
	Convert(ctx context.Context, epubPath string) (string, error)
}

// Config defines what the run produces.
type Config struct {
	// SourceURL is the listing page to start from.
	SourceURL string
	// EPUBPath is the file the book is written to.
	EPUBPath string
	// SkipConvert disables the conversion stage.
	SkipConvert bool
}

// Pipeline wires the components of a run together.
// Index is optional, the other collaborators are required.
type Pipeline struct {
	Config
	Collector Collector
	Fetcher   Fetcher
	Extractor Extractor
	Writer    Writer
	Assembler Assembler
	Converter Converter
	Index     store.Index
	Logger    *slog.Logger
}

// Summary describes the outcome of a run.
type Summary struct {
	RunID     string
	Collected int
	Succeeded int
	Skipped   int
	Files     []string
	EPUB      string
	MOBI      string
	Took      time.Duration
}

// LogAttrs returns the summary as log attributes.
func (s Summary) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("collected", s.Collected),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("skipped", s.Skipped),
		slog.String("epub", s.EPUB),
		slog.String("mobi", s.MOBI),
		slog.Duration("took", s.Took),
	}
}

// Run executes the stages one after another. Articles that could not be
// fetched or extracted are logged and skipped, any other failure stops the
// run with a StageError. The summary is filled up to the failed stage.
func (p *Pipeline) Run(ctx context.Context) (s Summary, err error) {
	lg := p.Logger
	if lg == nil {
		lg = slog.New(logx.NoOp())
	}

	start := time.Now()
	s.RunID = uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, s.RunID)
	defer func() { s.Took = time.Since(start) }()

	stageCtx := logging.ContextWithStage(ctx, StageCollecting)
	lg.InfoCtx(stageCtx, "collecting article links", slog.String("source", p.SourceURL))

	urls, err := p.Collector.Collect(stageCtx, p.SourceURL)
	if err != nil {
		return s, &StageError{Stage: StageCollecting, Err: err}
	}
	s.Collected = len(urls)
	lg.InfoCtx(stageCtx, "article links collected", slog.Int("count", len(urls)))

	stageCtx = logging.ContextWithStage(ctx, StageFetching)
	articles := make([]store.Article, 0, len(urls))
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return s, &StageError{Stage: StageFetching, Err: err}
		}

		actx := logging.ContextWithArticle(stageCtx, u)
		lg.InfoCtx(actx, "processing article", slog.Int("n", i+1), slog.Int("total", len(urls)))

		a, err := p.article(actx, u)
		if err != nil {
			s.Skipped++
			lg.WarnCtx(actx, "skipping article", slog.Any("err", err))
			continue
		}

		articles = append(articles, a)
	}
	s.Succeeded = len(articles)

	articles = store.Ordered(articles)

	stageCtx = logging.ContextWithStage(ctx, StageWriting)
	if s.Files, err = p.write(stageCtx, lg, articles); err != nil {
		return s, &StageError{Stage: StageWriting, Err: err}
	}

	stageCtx = logging.ContextWithStage(ctx, StageAssembling)
	lg.InfoCtx(stageCtx, "assembling epub", slog.String("path", p.EPUBPath), slog.Int("chapters", len(articles)))
	if err = p.Assembler.Assemble(articles, p.EPUBPath); err != nil {
		return s, &StageError{Stage: StageAssembling, Err: err}
	}
	s.EPUB = p.EPUBPath

	if p.SkipConvert {
		lg.InfoCtx(ctx, "conversion skipped")
		return s, nil
	}

	stageCtx = logging.ContextWithStage(ctx, StageConverting)
	if s.MOBI, err = p.Converter.Convert(stageCtx, p.EPUBPath); err != nil {
		return s, &StageError{Stage: StageConverting, Err: err}
	}

	return s, nil
}

func (p *Pipeline) article(ctx context.Context, u string) (store.Article, error) {
	raw, err := p.Fetcher.Fetch(ctx, u)
	if err != nil {
		return store.Article{}, fmt.Errorf("fetch: %w", err)
	}

	a, err := p.Extractor.Extract(u, raw)
	if err != nil {
		return store.Article{}, fmt.Errorf("extract: %w", err)
	}

	return a, nil
}

func (p *Pipeline) write(ctx context.Context, lg *slog.Logger, articles []store.Article) ([]string, error) {
	if p.Index != nil {
		if err := p.Index.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset index: %w", err)
		}
	}

	files := make([]string, 0, len(articles))
	for _, a := range articles {
		path, err := p.Writer.Write(a)
		if err != nil {
			return files, fmt.Errorf("article %s: %w", a.URL, err)
		}
		files = append(files, path)

		lg.DebugCtx(logging.ContextWithArticle(ctx, a.URL), "article written",
			slog.String("path", path), slog.String("date", a.Date()))

		if p.Index == nil {
			continue
		}
		if err := p.Index.Put(ctx, store.NewEntry(a, path)); err != nil {
			return files, fmt.Errorf("index article %s: %w", a.URL, err)
		}
	}

	lg.InfoCtx(ctx, "articles written", slog.Int("count", len(files)))
	return files, nil
}
