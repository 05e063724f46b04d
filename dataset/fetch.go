package dataset

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	getter "github.com/hashicorp/go-getter"

	"github.com/liftlab/repform/pkg/errors"
	"github.com/liftlab/repform/pkg/log"
)

// Fetcher downloads remote dataset files into a local cache directory.
type Fetcher struct {
	// CacheDir is where downloads land. Empty means a repform-data
	// directory under the OS temp dir.
	CacheDir string

	// Force re-downloads even when a cached copy exists.
	Force bool

	logger log.Logger
}

// NewFetcher creates a Fetcher caching into cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		CacheDir: cacheDir,
		logger:   log.GetLoggerWithName("dataset.fetch"),
	}
}

// Fetch downloads url into the cache directory and returns the local path.
// A non-empty cached file short-circuits the download unless Force is set.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	dir := f.CacheDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "repform-data")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating cache dir %s", dir)
	}

	dst := filepath.Join(dir, fileNameFromURL(url))
	if !f.Force {
		if fi, err := os.Stat(dst); err == nil && fi.Size() > 0 {
			f.logger.Debug("Using cached dataset", "path", dst)
			return dst, nil
		}
	}

	start := time.Now()
	client := &getter.Client{
		Ctx:  ctx,
		Src:  url,
		Dst:  dst,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return "", errors.Wrapf(err, "fetching %s", url)
	}
	f.logger.Info("Dataset fetched",
		log.OperationKey, log.OperationFetch,
		"url", url,
		"path", dst,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return dst, nil
}

// Load fetches url and decodes the downloaded file into a Table named name.
func (f *Fetcher) Load(ctx context.Context, url, name string) (*Table, error) {
	p, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	table, err := ReadCSVFile(p, name)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Table decoded",
		log.TableKey, name,
		log.SamplesKey, table.NRows(),
		log.FeaturesKey, table.NCols(),
	)
	return table, nil
}

// fileNameFromURL derives a cache file name from the URL path, ignoring any
// query string.
func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "download.csv"
}
