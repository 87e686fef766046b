package cmd

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"

	"github.com/Semior001/blogbook/app/ebook"
)

// ConvertCmd converts an already assembled EPUB file.
type ConvertCmd struct {
	Convert `group:"convert" namespace:"convert" env-namespace:"CONVERT"`
	Output  Output `group:"output" namespace:"output" env-namespace:"OUTPUT"`

	EPUB string `long:"epub" env:"EPUB" description:"path to the EPUB file, the output book by default"`
}

// Execute runs the command.
func (c ConvertCmd) Execute(_ []string) error {
	lg := slog.Default()

	path := c.EPUB
	if path == "" {
		path = c.Output.EPUBPath()
	}

	conv := ebook.Calibre{
		Binary:  c.Binary,
		Timeout: c.Timeout,
		Logger:  lg.With(slog.String("prefix", "converter")),
	}

	return withSignals(func(ctx context.Context) error {
		mobi, err := conv.Convert(ctx, path)
		if err != nil {
			return fmt.Errorf("convert %s: %w", path, err)
		}

		lg.Info("conversion finished", slog.String("mobi", mobi))
		return nil
	})
}
