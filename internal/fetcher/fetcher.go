package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote data over some transport (HTTP or FTP).
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
