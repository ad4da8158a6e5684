package fetcher

import (
	"context"
	"io"
	"net/url"
)

// Router dispatches downloads by URL scheme, so a dataset registry can mix
// https endpoints with ftp mirrors without the caller choosing a transport.
type Router struct {
	http Fetcher
	ftp  Fetcher
}

// NewRouter creates a Router over the two transports.
func NewRouter(httpFetcher, ftpFetcher Fetcher) *Router {
	return &Router{http: httpFetcher, ftp: ftpFetcher}
}

func (r *Router) pick(rawURL string) Fetcher {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "ftp" {
		return r.ftp
	}
	return r.http
}

func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return r.pick(rawURL).Download(ctx, rawURL)
}

func (r *Router) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	return r.pick(rawURL).DownloadToFile(ctx, rawURL, path)
}
