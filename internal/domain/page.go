package domain

import (
	"context"
	"time"
)

// Page origins recorded in Page.Source.
const (
	PageFromCache   = "cache"
	PageFromNetwork = "network"
)

// Page is a tide table document as UTF-8 HTML.
type Page struct {
	URL       string
	Body      []byte
	Source    string
	FetchedAt time.Time
}

// PageFetcher loads a tide table page.
type PageFetcher interface {
	FetchPage(ctx context.Context) (Page, error)
}
