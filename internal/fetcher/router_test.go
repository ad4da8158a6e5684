package fetcher

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFetcher struct {
	label string
	urls  []string
}

func (f *recordingFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	f.urls = append(f.urls, url)
	return io.NopCloser(strings.NewReader(f.label)), nil
}

func (f *recordingFetcher) DownloadToFile(_ context.Context, url string, _ string) (int64, error) {
	f.urls = append(f.urls, url)
	return int64(len(f.label)), nil
}

func TestRouterDispatchesByScheme(t *testing.T) {
	httpF := &recordingFetcher{label: "http"}
	ftpF := &recordingFetcher{label: "ftp"}
	r := NewRouter(httpF, ftpF)

	body, err := r.Download(context.Background(), "https://data.edmonton.ca/resource/x.csv")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "http", string(data))

	body, err = r.Download(context.Background(), "ftp://mirror.example.org/boundaries.zip")
	require.NoError(t, err)
	data, _ = io.ReadAll(body)
	assert.Equal(t, "ftp", string(data))

	_, err = r.DownloadToFile(context.Background(), "ftp://mirror.example.org/pop.xlsx", "/tmp/pop.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://data.edmonton.ca/resource/x.csv"}, httpF.urls)
	assert.Len(t, ftpF.urls, 2)
}
