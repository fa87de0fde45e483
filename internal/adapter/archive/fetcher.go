// Package archive downloads zipped boundary datasets and unpacks them next
// to previously fetched data.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/md-overdose-map/internal/observability"
)

// BoundaryExt is the extension whose presence marks a dataset directory as
// already fetched.
const BoundaryExt = ".shp"

// NetworkError wraps a failure to retrieve an archive over HTTP.
type NetworkError struct {
	URL        string
	StatusCode int // zero when the request never got a response
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is, or wraps, a NetworkError.
func IsNetworkError(err error) bool {
	var nerr *NetworkError
	return errors.As(err, &nerr)
}

// Result describes what a fetch did.
type Result struct {
	Fetched bool  // false when the directory already held a shapefile
	Bytes   int64 // size of the downloaded archive
	Files   int   // entries extracted
}

// Fetcher downloads ZIP archives over HTTP.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewFetcher creates a Fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchIfAbsent downloads the archive at url and extracts it into dir unless
// dir already contains a file ending in BoundaryExt. The check is on
// presence only, not content or age.
func (f *Fetcher) FetchIfAbsent(ctx context.Context, dataset, url, dir string) (Result, error) {
	present, err := hasBoundaryFile(dir)
	if err != nil {
		return Result{}, err
	}
	if present {
		f.metrics.ArchiveDownloads.WithLabelValues(dataset, "cached").Inc()
		f.logger.Debug("boundary data already present", "dataset", dataset, "dir", dir)
		return Result{}, nil
	}

	f.logger.Info("downloading and extracting needed data", "dataset", dataset, "dir", dir)

	body, err := f.download(ctx, url)
	if err != nil {
		f.metrics.ArchiveDownloads.WithLabelValues(dataset, "error").Inc()
		return Result{}, err
	}
	f.metrics.ArchiveBytes.Add(float64(len(body)))

	n, err := Extract(body, dir)
	if err != nil {
		f.metrics.ArchiveDownloads.WithLabelValues(dataset, "error").Inc()
		return Result{}, fmt.Errorf("extract %s: %w", dataset, err)
	}

	f.metrics.ArchiveDownloads.WithLabelValues(dataset, "downloaded").Inc()
	f.logger.Info("boundary data extracted",
		"dataset", dataset,
		"size", humanize.Bytes(uint64(len(body))),
		"files", n,
	)
	return Result{Fetched: true, Bytes: int64(len(body)), Files: n}, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return body, nil
}

// hasBoundaryFile lists dir and reports whether any entry has BoundaryExt.
// A missing directory counts as empty.
func hasBoundaryFile(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("list %s: %w", dir, err)
	}
	for _, e := range entries {
		if strings.EqualFold(filepath.Ext(e.Name()), BoundaryExt) {
			return true, nil
		}
	}
	return false, nil
}

// Extract unpacks every entry of the ZIP archive in data into dir, creating
// it as needed. It returns the number of files written.
func Extract(data []byte, dir string) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open zip: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return 0, err
	}

	files := 0
	for _, zf := range zr.File {
		target, err := entryPath(root, zf.Name)
		if err != nil {
			return files, err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(zf, target); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

// entryPath resolves a zip entry name under root, rejecting names that
// would land outside it.
func entryPath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("zip entry %q escapes destination", name)
	}
	return target, nil
}

// extractFile is split out of Extract so each entry's handles are closed
// before the next one opens.
func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}

	src, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", zf.Name, err)
	}
	defer src.Close()

	mode := zf.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	return nil
}
