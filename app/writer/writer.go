// Package writer persists extracted articles as plain text files.
package writer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Semior001/blogbook/app/store"
)

// ErrWrite is returned when an article could not be persisted.
var ErrWrite = errors.New("write article")

// maxNameLen bounds the length of the file name without extension.
const maxNameLen = 100

const (
	titleHeader  = "Title: "
	dateHeader   = "Date: "
	sourceHeader = "Source: "
)

// Writer writes articles into a directory, one file per article.
// File names are unique among the files written by the same Writer,
// so a rerun over the same articles produces the same names.
type Writer struct {
	dir  string
	used map[string]bool
}

// New creates new Writer for the given directory.
func New(dir string) *Writer {
	return &Writer{dir: dir, used: map[string]bool{}}
}

// Write stores the article and returns the path of the written file.
func (w *Writer) Write(a store.Article) (string, error) {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: make output dir: %v", ErrWrite, err)
	}

	base := SanitizeFilename(a.Title)
	if base == "" {
		base = SanitizeFilename(a.URL)
	}
	if base == "" {
		base = "article"
	}

	name := base
	for i := 1; w.used[strings.ToLower(name)]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	w.used[strings.ToLower(name)] = true

	path := filepath.Join(w.dir, name+".txt")
	if err := os.WriteFile(path, []byte(Format(a)), 0o600); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWrite, err)
	}

	return path, nil
}

// Format renders the article with its header.
func Format(a store.Article) string {
	sb := &strings.Builder{}
	sb.WriteString(titleHeader + strings.Join(strings.Fields(a.Title), " ") + "\n")
	sb.WriteString(dateHeader + a.Date() + "\n")
	sb.WriteString(sourceHeader + a.URL + "\n")
	sb.WriteString("\n")
	sb.WriteString(a.Body)
	sb.WriteString("\n")
	return sb.String()
}

// Read parses a file made by Write back into an article. Order and
// Strategy are not persisted and stay zero.
func Read(path string) (store.Article, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return store.Article{}, fmt.Errorf("read file: %w", err)
	}

	var a store.Article
	sc := bufio.NewScanner(strings.NewReader(string(bts)))
	// titles are not length-limited, a header line may be as long as the file
	sc.Buffer(make([]byte, 0, 64*1024), len(bts)+1)
	consumed := 0
	for sc.Scan() {
		line := sc.Text()
		consumed += len(line) + 1
		if line == "" {
			break
		}

		switch {
		case strings.HasPrefix(line, titleHeader):
			a.Title = strings.TrimPrefix(line, titleHeader)
		case strings.HasPrefix(line, sourceHeader):
			a.URL = strings.TrimPrefix(line, sourceHeader)
		case strings.HasPrefix(line, dateHeader):
			date := strings.TrimPrefix(line, dateHeader)
			if date == store.UnknownDate {
				continue
			}
			if a.PublishedAt, err = time.Parse(store.DateLayout, date); err != nil {
				return store.Article{}, fmt.Errorf("parse date %q: %w", date, err)
			}
		default:
			return store.Article{}, fmt.Errorf("unexpected header line %q", line)
		}
	}

	if err := sc.Err(); err != nil {
		return store.Article{}, fmt.Errorf("scan header: %w", err)
	}

	if consumed < len(bts) {
		a.Body = strings.TrimSuffix(string(bts[consumed:]), "\n")
	}

	return a, nil
}

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	spaces       = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes a file name out of the title: characters illegal
// on common filesystems become underscores, the result is limited to 100
// runes and has no leading or trailing dots and spaces.
func SanitizeFilename(title string) string {
	name := illegalChars.ReplaceAllString(title, "_")
	name = spaces.ReplaceAllString(name, " ")

	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}

	return strings.Trim(name, ". ")
}
