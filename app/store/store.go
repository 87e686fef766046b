// Package store contains the article entity and the run index.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is an error that is returned when the requested entity is not found.
var ErrNotFound = errors.New("not found")

// Index defines methods for the index of articles written during a run.
type Index interface {
	Reset(ctx context.Context) error
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, url string) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
}

// Entry describes an article written to the output directory.
type Entry struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Order       int       `json:"order"`
	File        string    `json:"file"`
	Strategy    string    `json:"strategy,omitempty"`
}

// NewEntry makes an index entry for the article written to file.
func NewEntry(a Article, file string) Entry {
	return Entry{
		URL:         a.URL,
		Title:       a.Title,
		PublishedAt: a.PublishedAt,
		Order:       a.Order,
		File:        file,
		Strategy:    a.Strategy,
	}
}
