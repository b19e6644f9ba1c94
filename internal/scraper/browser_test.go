package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestBrowserStartFailsWithoutChrome(t *testing.T) {
	b := NewBrowserFetcher(true, 5*time.Second)
	b.execPath = filepath.Join(t.TempDir(), "no-chrome")

	if err := b.Start(); err == nil {
		b.Stop()
		t.Fatal("Start succeeded with a missing browser binary")
	}

	_, err := b.Fetch(context.Background(), Request{URL: "https://dubai.dubizzle.com/"})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("Fetch after failed Start: got %v, want ErrUpstreamUnavailable", err)
	}
}
