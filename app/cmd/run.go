// Package cmd contains commands for the application.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"github.com/Semior001/blogbook/app/collector"
	"github.com/Semior001/blogbook/app/ebook"
	"github.com/Semior001/blogbook/app/extractor"
	"github.com/Semior001/blogbook/app/fetcher"
	"github.com/Semior001/blogbook/app/pipeline"
	"github.com/Semior001/blogbook/app/store"
	"github.com/Semior001/blogbook/app/writer"
)

// Output defines where the results go.
type Output struct {
	Dir    string `long:"dir" env:"DIR" default:"downloaded_articles" description:"directory for article files and ebooks"`
	Book   string `long:"book" env:"BOOK" default:"jack_vanlightly_articles" description:"base name of the ebook files"`
	Title  string `long:"title" env:"TITLE" default:"Jack Vanlightly Articles" description:"title of the ebook"`
	Author string `long:"author" env:"AUTHOR" default:"Jack Vanlightly" description:"author of the ebook"`
}

// EPUBPath returns the path of the EPUB file.
func (o Output) EPUBPath() string { return filepath.Join(o.Dir, o.Book+".epub") }

// Convert defines the external converter.
type Convert struct {
	Binary  string        `long:"binary" env:"BINARY" default:"ebook-convert" description:"converter executable"`
	Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"10m" description:"timeout for the conversion"`
}

// Run is a command to download the articles and build the ebooks.
type Run struct {
	Source struct {
		URL             string   `long:"url" env:"URL" default:"https://jack-vanlightly.com/analysis-archive" description:"listing page with the article links"`
		ArticlePatterns []string `long:"article-pattern" env:"ARTICLE_PATTERNS" env-delim:"," default:"/analyses/" default:"/blog/" description:"url fragment of article links"`
		ExcludePatterns []string `long:"exclude-pattern" env:"EXCLUDE_PATTERNS" env-delim:"," default:"/category/" default:"/tag/" default:"format=rss" description:"url fragment of links to ignore"`
		MaxPages        int      `long:"max-pages" env:"MAX_PAGES" default:"20" description:"max listing pages to visit"`
		IgnoreRobots    bool     `long:"ignore-robots" env:"IGNORE_ROBOTS" description:"do not check robots.txt"`
	} `group:"source" namespace:"source" env-namespace:"SOURCE"`

	Fetch struct {
		Timeout   time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"timeout for a single request"`
		UserAgent string        `long:"user-agent" env:"USER_AGENT" description:"user agent for requests, browser-like by default"`
		CacheSize int           `long:"cache-size" env:"CACHE_SIZE" default:"512" description:"pages kept in memory during the run"`
	} `group:"fetch" namespace:"fetch" env-namespace:"FETCH"`

	Output Output `group:"output" namespace:"output" env-namespace:"OUTPUT"`

	Convert struct {
		Convert
		Skip bool `long:"skip" env:"SKIP" description:"do not convert the EPUB to MOBI"`
	} `group:"convert" namespace:"convert" env-namespace:"CONVERT"`

	IndexPath string `long:"index" env:"INDEX" description:"path to the bolt file indexing written articles, disabled if empty"`
}

// Execute runs the command.
func (r Run) Execute(_ []string) error {
	lg := slog.Default()

	ua := r.Fetch.UserAgent
	if ua == "" {
		ua = fetcher.DefaultUserAgent
	}

	f := fetcher.New(fetcher.Options{
		Timeout:   r.Fetch.Timeout,
		UserAgent: ua,
		CacheSize: r.Fetch.CacheSize,
		Logger:    lg.With(slog.String("prefix", "fetcher")),
	})

	p := &pipeline.Pipeline{
		Config: pipeline.Config{
			SourceURL:   r.Source.URL,
			EPUBPath:    r.Output.EPUBPath(),
			SkipConvert: r.Convert.Skip,
		},
		Collector: collector.New(f, collector.Options{
			ArticlePatterns: r.Source.ArticlePatterns,
			ExcludePatterns: r.Source.ExcludePatterns,
			MaxPages:        r.Source.MaxPages,
			IgnoreRobots:    r.Source.IgnoreRobots,
			UserAgent:       ua,
			Logger:          lg.With(slog.String("prefix", "collector")),
		}),
		Fetcher:   f,
		Extractor: extractor.New(lg.With(slog.String("prefix", "extractor"))),
		Writer:    writer.New(r.Output.Dir),
		Assembler: ebook.NewAssembler(lg.With(slog.String("prefix", "epub")), ebook.Book{
			Title:  r.Output.Title,
			Author: r.Output.Author,
			Source: r.Source.URL,
		}),
		Converter: ebook.Calibre{
			Binary:  r.Convert.Binary,
			Timeout: r.Convert.Timeout,
			Logger:  lg.With(slog.String("prefix", "converter")),
		},
		Logger: lg.With(slog.String("prefix", "pipeline")),
	}

	if r.IndexPath != "" {
		idx, err := store.NewBolt(r.IndexPath)
		if err != nil {
			return fmt.Errorf("make index: %w", err)
		}

		defer func() {
			if err := idx.Close(); err != nil {
				lg.Error("close bolt index", slog.Any("err", err))
			}
		}()

		p.Index = idx
	}

	return withSignals(func(ctx context.Context) error {
		s, err := p.Run(ctx)

		st := f.CacheStat()
		lg.LogAttrs(ctx, slog.LevelInfo, "run finished", append(s.LogAttrs(),
			slog.String("run_id", s.RunID),
			slog.Int("cache_hits", st.Hits),
			slog.Int("cache_misses", st.Misses),
		)...)

		var serr *pipeline.StageError
		if errors.As(err, &serr) {
			lg.Error("run failed", slog.String("stage", serr.Stage), slog.Any("err", serr.Err))
		}

		return err
	})
}

// withSignals runs fn with a context canceled on SIGINT or SIGTERM.
func withSignals(fn func(ctx context.Context) error) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case sig := <-sig:
			slog.Warn("caught signal, stopping", slog.String("signal", sig.String()))
			stop()
			return ctx.Err()
		case <-ctx.Done():
			return nil
		}
	})
	ewg.Go(func() error {
		defer stop()
		return fn(ctx)
	})

	return ewg.Wait()
}
