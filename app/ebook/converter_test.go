package ebook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "convert.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))
	return path
}

func epubFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(path, []byte("epub"), 0o600))
	return path
}

func TestCalibre_Convert(t *testing.T) {
	src := epubFile(t)

	out, err := Calibre{Binary: script(t, `cp "$1" "$2"`), Timeout: time.Minute}.Convert(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(src), "book.mobi"), out)

	bts, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "epub", string(bts))
}

func TestCalibre_ConvertMissingBinary(t *testing.T) {
	src := epubFile(t)

	_, err := Calibre{Binary: filepath.Join(t.TempDir(), "no-such-converter")}.Convert(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConverterNotFound))
	assert.True(t, errors.Is(err, ErrConversion))
	assert.Contains(t, err.Error(), "install Calibre")

	_, err = os.Stat(src)
	assert.NoError(t, err, "epub must stay in place")
}

func TestCalibre_ConvertFailure(t *testing.T) {
	_, err := Calibre{Binary: script(t, "echo 'broken input' >&2\nexit 1")}.Convert(context.Background(), epubFile(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))
	assert.False(t, errors.Is(err, ErrConverterNotFound))
	assert.Contains(t, err.Error(), "broken input")
}

func TestCalibre_ConvertNoOutput(t *testing.T) {
	_, err := Calibre{Binary: script(t, "exit 0")}.Convert(context.Background(), epubFile(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))
	assert.Contains(t, err.Error(), "without producing")
}

func TestCalibre_ConvertTimeout(t *testing.T) {
	_, err := Calibre{Binary: script(t, "exec sleep 5"), Timeout: 50 * time.Millisecond}.
		Convert(context.Background(), epubFile(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversion))
}
