package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/Semior001/blogbook/app/store"
)

// Index prints the articles written by the last run.
type Index struct {
	Path string `long:"index" env:"INDEX" required:"true" description:"path to the bolt index file"`
	JSON bool   `long:"json" description:"print entries as json lines"`

	out io.Writer
}

// Execute runs the command.
func (c Index) Execute(_ []string) error {
	idx, err := store.NewBolt(c.Path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	entries, err := idx.List(context.Background())
	if err != nil {
		return fmt.Errorf("list index: %w", err)
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	if c.JSON {
		enc := json.NewEncoder(out)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("encode entry %s: %w", e.URL, err)
			}
		}
		return nil
	}

	rows := [][]string{{"#", "DATE", "TITLE", "FILE"}}
	for _, e := range entries {
		a := store.Article{PublishedAt: e.PublishedAt}
		rows = append(rows, []string{
			strconv.Itoa(e.Order + 1),
			a.Date(),
			runewidth.Truncate(e.Title, maxTitleWidth, "..."),
			e.File,
		})
	}

	_, err = io.WriteString(out, table(rows))
	return err
}

// maxTitleWidth bounds the display width of the title column.
const maxTitleWidth = 60

// table aligns the columns by display width, so titles in wide scripts
// do not break the layout.
func table(rows [][]string) string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	sb := &strings.Builder{}
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				continue
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]+2))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
