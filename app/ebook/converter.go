package ebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"github.com/Semior001/blogbook/pkg/logx"
)

var (
	// ErrConversion is returned when the converter failed to produce the output.
	ErrConversion = errors.New("convert ebook")
	// ErrConverterNotFound is returned when the converter executable is missing.
	ErrConverterNotFound = fmt.Errorf("%w: converter not found", ErrConversion)
)

// outputTail limits the amount of converter output kept in errors.
const outputTail = 2048

// Calibre converts EPUB files with the ebook-convert tool from Calibre.
type Calibre struct {
	// Binary is the name or the path of the executable, "ebook-convert" by default.
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Convert makes a MOBI file next to the EPUB one and returns its path.
func (c Calibre) Convert(ctx context.Context, epubPath string) (string, error) {
	lg := c.Logger
	if lg == nil {
		lg = slog.New(logx.NoOp())
	}

	bin := c.Binary
	if bin == "" {
		bin = "ebook-convert"
	}

	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not available, install Calibre "+
			"(https://calibre-ebook.com) to get MOBI output: %v", ErrConverterNotFound, bin, err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	mobiPath := strings.TrimSuffix(epubPath, filepath.Ext(epubPath)) + ".mobi"

	lg.InfoCtx(ctx, "converting ebook",
		slog.String("binary", path),
		slog.String("from", epubPath),
		slog.String("to", mobiPath))

	start := time.Now()
	out, err := exec.CommandContext(ctx, path, epubPath, mobiPath).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: run %s: %v, output: %s", ErrConversion, bin, err, tail(out))
	}

	if _, err := os.Stat(mobiPath); err != nil {
		return "", fmt.Errorf("%w: %s exited without producing %s, output: %s",
			ErrConversion, bin, mobiPath, tail(out))
	}

	lg.InfoCtx(ctx, "mobi created",
		slog.String("path", mobiPath),
		slog.Duration("took", time.Since(start)))

	return mobiPath, nil
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > outputTail {
		s = "..." + s[len(s)-outputTail:]
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
