package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Semior001/blogbook/app/ebook"
	"github.com/Semior001/blogbook/app/pipeline"
	"github.com/Semior001/blogbook/app/store"
)

func blog(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/archive", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<a href="/blog/2023/2/1/newer">Newer</a>
			<a href="/blog/2023/1/1/older">Older</a>
			<a href="/blog/2023/1/15/broken">Broken</a>
			<a href="/blog/category/kafka">Category</a>
			<a href="https://elsewhere.example/blog/x">External</a>
		</body></html>`))
	})
	mux.HandleFunc("/blog/2023/2/1/newer", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Newer Post | Blog</title></head>
			<body><div class="post-content"><p>Newer text.</p></div></body></html>`))
	})
	mux.HandleFunc("/blog/2023/1/1/older", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Older Post | Blog</title></head>
			<body><div class="post-content"><p>Older text.</p></div></body></html>`))
	})
	mux.HandleFunc("/blog/2023/1/15/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *httptest.Server, dir string) Run {
	t.Helper()

	r := Run{Output: Output{Dir: dir, Book: "book", Title: "Book", Author: "Author"}}
	r.Source.URL = srv.URL + "/archive"
	r.Source.ArticlePatterns = []string{"/blog/"}
	r.Source.ExcludePatterns = []string{"/category/", "/tag/"}
	r.Source.MaxPages = 5
	r.Fetch.Timeout = 5 * time.Second
	r.Fetch.CacheSize = 16
	r.Convert.Timeout = time.Minute
	return r
}

func TestRun_Execute(t *testing.T) {
	dir := t.TempDir()
	converter := filepath.Join(t.TempDir(), "ebook-convert")
	require.NoError(t, os.WriteFile(converter, []byte("#!/bin/sh\ncp \"$1\" \"$2\"\n"), 0o700))

	r := run(t, blog(t), dir)
	r.Convert.Binary = converter
	r.IndexPath = filepath.Join(t.TempDir(), "index.db")

	require.NoError(t, r.Execute(nil))

	for _, name := range []string{"Newer Post.txt", "Older Post.txt", "book.epub", "book.mobi"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	out := &bytes.Buffer{}
	require.NoError(t, Index{Path: r.IndexPath, JSON: true, out: out}.Execute(nil))

	var entries []store.Entry
	dec := json.NewDecoder(out)
	for dec.More() {
		var e store.Entry
		require.NoError(t, dec.Decode(&e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "Newer Post", entries[0].Title)
	assert.Equal(t, "Older Post", entries[1].Title)
}

func TestRun_ExecuteMissingConverter(t *testing.T) {
	dir := t.TempDir()
	r := run(t, blog(t), dir)
	r.Convert.Binary = filepath.Join(t.TempDir(), "no-converter")

	err := r.Execute(nil)
	require.Error(t, err)

	var serr *pipeline.StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, pipeline.StageConverting, serr.Stage)
	assert.True(t, errors.Is(err, ebook.ErrConverterNotFound))

	_, err = os.Stat(filepath.Join(dir, "book.epub"))
	assert.NoError(t, err)
}

func TestRun_ExecuteSourceDown(t *testing.T) {
	srv := blog(t)
	r := run(t, srv, t.TempDir())
	r.Convert.Skip = true
	srv.Close()

	err := r.Execute(nil)
	var serr *pipeline.StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, pipeline.StageCollecting, serr.Stage)
}

func TestConvertCmd_Execute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book.epub"), []byte("epub"), 0o600))

	converter := filepath.Join(t.TempDir(), "ebook-convert")
	require.NoError(t, os.WriteFile(converter, []byte("#!/bin/sh\ncp \"$1\" \"$2\"\n"), 0o700))

	c := ConvertCmd{
		Convert: Convert{Binary: converter, Timeout: time.Minute},
		Output:  Output{Dir: dir, Book: "book"},
	}
	require.NoError(t, c.Execute(nil))

	bts, err := os.ReadFile(filepath.Join(dir, "book.mobi"))
	require.NoError(t, err)
	assert.Equal(t, "epub", string(bts))
}

func TestIndex_ExecuteTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := store.NewBolt(path)
	require.NoError(t, err)
	require.NoError(t, idx.Put(context.Background(), store.Entry{
		URL:         "https://blog.example/a",
		Title:       "First",
		PublishedAt: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		File:        "out/First.txt",
	}))
	require.NoError(t, idx.Put(context.Background(), store.Entry{
		URL: "https://blog.example/b", Title: "Second", Order: 1, File: "out/Second.txt",
	}))
	require.NoError(t, idx.Close())

	out := &bytes.Buffer{}
	require.NoError(t, Index{Path: path, out: out}.Execute(nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"#", "DATE", "TITLE", "FILE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "2023-01-02", "First", "out/First.txt"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "unknown", "Second", "out/Second.txt"}, strings.Fields(lines[2]))
}

func TestTable(t *testing.T) {
	got := table([][]string{
		{"#", "TITLE", "FILE"},
		{"1", "日本語", "a.txt"},
		{"2", "ascii", "b.txt"},
	})

	assert.Equal(t, ""+
		"#  TITLE   FILE\n"+
		"1  日本語  a.txt\n"+
		"2  ascii   b.txt\n", got)
}
