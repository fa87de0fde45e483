package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/md-overdose-map/internal/observability"
)

const contentTypeZip = "application/zip"

func testFetcher() *Fetcher {
	return NewFetcher(5*time.Second, observability.DiscardLogger(), observability.NewMetricsForTesting())
}

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zipServer(t *testing.T, payload []byte, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", contentTypeZip)
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchIfAbsent_DownloadsAndExtracts(t *testing.T) {
	payload := makeZip(t, map[string]string{
		"counties.shp": "shp",
		"counties.dbf": "dbf",
		"counties.shx": "shx",
		"docs/README":  "readme",
	})
	var hits atomic.Int64
	srv := zipServer(t, payload, &hits)

	dir := filepath.Join(t.TempDir(), "MD_County_Boundary")
	res, err := testFetcher().FetchIfAbsent(context.Background(), "counties", srv.URL+"/counties.zip", dir)
	require.NoError(t, err)

	assert.True(t, res.Fetched)
	assert.Equal(t, int64(len(payload)), res.Bytes)
	assert.Equal(t, 4, res.Files)
	assert.Equal(t, int64(1), hits.Load())

	data, err := os.ReadFile(filepath.Join(dir, "counties.dbf"))
	require.NoError(t, err)
	assert.Equal(t, "dbf", string(data))
	assert.FileExists(t, filepath.Join(dir, "docs", "README"))
}

func TestFetchIfAbsent_IsIdempotent(t *testing.T) {
	payload := makeZip(t, map[string]string{"state.shp": "shp", "state.dbf": "dbf"})
	var hits atomic.Int64
	srv := zipServer(t, payload, &hits)

	dir := t.TempDir()
	f := testFetcher()

	first, err := f.FetchIfAbsent(context.Background(), "state", srv.URL, dir)
	require.NoError(t, err)
	assert.True(t, first.Fetched)

	second, err := f.FetchIfAbsent(context.Background(), "state", srv.URL, dir)
	require.NoError(t, err)
	assert.False(t, second.Fetched)
	assert.Equal(t, int64(1), hits.Load(), "second call must not touch the network")
}

func TestFetchIfAbsent_SkipsWhenShapefilePresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Existing.SHP"), []byte("x"), 0o600))

	// An unroutable URL proves no request is attempted.
	res, err := testFetcher().FetchIfAbsent(context.Background(), "state", "http://127.0.0.1:0/never", dir)
	require.NoError(t, err)
	assert.False(t, res.Fetched)
}

func TestFetchIfAbsent_OtherFilesDoNotCount(t *testing.T) {
	payload := makeZip(t, map[string]string{"state.shp": "shp"})
	var hits atomic.Int64
	srv := zipServer(t, payload, &hits)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.dbf"), []byte("x"), 0o600))

	res, err := testFetcher().FetchIfAbsent(context.Background(), "state", srv.URL, dir)
	require.NoError(t, err)
	assert.True(t, res.Fetched)
	assert.Equal(t, int64(1), hits.Load())
}

func TestFetchIfAbsent_HTTPErrorIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "missing")
	_, err := testFetcher().FetchIfAbsent(context.Background(), "state", srv.URL, dir)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))

	var nerr *NetworkError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, http.StatusServiceUnavailable, nerr.StatusCode)
	assert.Contains(t, err.Error(), "503")
	assert.NoDirExists(t, dir)
}

func TestFetchIfAbsent_ConnectionRefusedIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testFetcher().FetchIfAbsent(context.Background(), "state", url, t.TempDir())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestFetchIfAbsent_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(20*time.Millisecond, observability.DiscardLogger(), observability.NewMetricsForTesting())
	_, err := f.FetchIfAbsent(context.Background(), "state", srv.URL, t.TempDir())
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}

func TestFetchIfAbsent_CorruptArchiveIsNotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := testFetcher().FetchIfAbsent(context.Background(), "state", srv.URL, t.TempDir())
	require.Error(t, err)
	assert.False(t, IsNetworkError(err))
	assert.Contains(t, err.Error(), "open zip")
}

func TestExtract_RejectsZipSlip(t *testing.T) {
	payload := makeZip(t, map[string]string{"../../evil.shp": "x"})

	dir := filepath.Join(t.TempDir(), "dest")
	_, err := Extract(payload, dir)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(filepath.Dir(dir)), "evil.shp"))
}

func TestEntryPath(t *testing.T) {
	root := filepath.Join(string(os.PathSeparator), "data", "MD_State_Boundary")

	p, err := entryPath(root, "state.shp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "state.shp"), p)

	p, err = entryPath(root, "nested/dir/state.dbf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "nested", "dir", "state.dbf"), p)

	_, err = entryPath(root, "../MD_State_Boundary_evil/state.shp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")
}
