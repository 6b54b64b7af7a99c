package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeimage/internal/db"
	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
	"github.com/banshee-data/rangeimage/internal/lidar/storage/sqlite"
	"github.com/banshee-data/rangeimage/internal/testutil"
)

func newServer(t *testing.T, cfg WebServerConfig) *WebServer {
	t.Helper()
	if cfg.SensorID == "" {
		cfg.SensorID = "lidar-01"
	}
	ws, err := NewWebServer(cfg)
	require.NoError(t, err)
	return ws
}

func get(ws *WebServer, path string) (int, string, http.Header) {
	rec := testutil.Serve(ws.Handler(), testutil.NewTestRequest(http.MethodGet, path))
	return rec.Code, rec.Body.String(), rec.Header()
}

func newStore(t *testing.T) (*db.DB, *sqlite.RangeImageStore) {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, sqlite.NewRangeImageStore(database.DB)
}

func TestWebServer_Health(t *testing.T) {
	ws := newServer(t, WebServerConfig{})
	code, body, _ := get(ws, "/health")
	testutil.AssertStatusCode(t, code, http.StatusOK)
	testutil.AssertBodyContains(t, body, `"ok"`)
}

func TestWebServer_NoImage(t *testing.T) {
	ws := newServer(t, WebServerConfig{})

	for _, path := range []string{
		"/api/range-image/latest",
		"/debug/range-image/heatmap",
		"/debug/range-image/png",
		"/api/range-image/latest?snapshot_id=abc",
	} {
		code, body, _ := get(ws, path)
		testutil.AssertStatusCode(t, code, http.StatusNotFound)
		testutil.AssertBodyContains(t, body, "no range image available")
	}

	code, _, _ := get(ws, "/api/range-image/snapshots")
	testutil.AssertStatusCode(t, code, http.StatusServiceUnavailable)
}

func TestWebServer_ConsumedImage(t *testing.T) {
	ws := newServer(t, WebServerConfig{})
	require.NoError(t, ws.Consume(testImage(t)))
	assert.Error(t, ws.Consume(nil))

	code, body, _ := get(ws, "/api/range-image/latest")
	testutil.AssertStatusCode(t, code, http.StatusOK)

	var summary imageSummary
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Equal(t, "lidar-01", summary.SensorID)
	assert.Equal(t, 64, summary.Rows)
	assert.Equal(t, 1024, summary.Cols)
	assert.Equal(t, 3, summary.WrittenCells)
	assert.Equal(t, "last_write_wins", summary.CollisionPolicy)
	assert.Equal(t, 3, summary.Channels["range"].Count)
	assert.Equal(t, 250.0, summary.Channels["intensity"].Max)

	rec := testutil.Serve(ws.Handler(), testutil.NewTestRequest(http.MethodGet, "/debug/range-image/heatmap?channel=intensity"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.AssertContentType(t, rec, "text/html")
	testutil.AssertBodyContains(t, rec.Body.String(), "Range image: intensity")

	rec = testutil.Serve(ws.Handler(), testutil.NewTestRequest(http.MethodGet, "/debug/range-image/png"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.AssertContentType(t, rec, "image/png")
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])

	code, body, _ = get(ws, "/debug/range-image/png?channel=colour")
	testutil.AssertStatusCode(t, code, http.StatusBadRequest)
	testutil.AssertBodyContains(t, body, "colour")

	rec = testutil.Serve(ws.Handler(), testutil.NewTestRequest(http.MethodPost, "/api/range-image/latest"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestWebServer_StoredSnapshots(t *testing.T) {
	database, store := newStore(t)
	ws := newServer(t, WebServerConfig{Store: store, DB: database})

	img := testImage(t)
	first, err := img.Persist(store, "lidar-01")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = img.Persist(store, "lidar-01")
	require.NoError(t, err)

	// Latest falls back to the store when nothing was consumed.
	code, body, _ := get(ws, "/api/range-image/latest")
	testutil.AssertStatusCode(t, code, http.StatusOK)
	testutil.AssertBodyContains(t, body, `"written_cells":3`)

	code, body, _ = get(ws, "/api/range-image/snapshots?limit=1")
	testutil.AssertStatusCode(t, code, http.StatusOK)
	var infos []snapshotInfo
	require.NoError(t, json.Unmarshal([]byte(body), &infos))
	require.Len(t, infos, 1)
	assert.NotEqual(t, first, infos[0].SnapshotID)
	assert.Positive(t, infos[0].GridBlobBytes)

	code, _, _ = get(ws, "/debug/range-image/heatmap?snapshot_id="+first)
	testutil.AssertStatusCode(t, code, http.StatusOK)

	code, _, _ = get(ws, "/api/range-image/latest?sensor_id=other")
	testutil.AssertStatusCode(t, code, http.StatusNotFound)

	code, body, _ = get(ws, "/api/range-image/latest?snapshot_id=missing")
	testutil.AssertStatusCode(t, code, http.StatusNotFound)
	testutil.AssertBodyContains(t, body, "no range image available")

	code, _, _ = get(ws, "/api/range-image/snapshots?limit=0")
	testutil.AssertStatusCode(t, code, http.StatusBadRequest)
}

type failingReader struct{}

func (failingReader) Get(string) (*l3grid.Snapshot, error) { return nil, errors.New("boom") }
func (failingReader) Latest(string) (*l3grid.Snapshot, error) {
	return nil, errors.New("boom")
}
func (failingReader) ListBySensor(string, int) ([]*l3grid.Snapshot, error) {
	return nil, errors.New("boom")
}

func TestWebServer_StoreErrors(t *testing.T) {
	ws := newServer(t, WebServerConfig{Store: failingReader{}})

	code, _, _ := get(ws, "/api/range-image/latest")
	testutil.AssertStatusCode(t, code, http.StatusInternalServerError)

	code, _, _ = get(ws, "/api/range-image/snapshots")
	testutil.AssertStatusCode(t, code, http.StatusInternalServerError)

	for _, path := range []string{
		"/api/range-image/latest?snapshot_id=abc",
		"/debug/range-image/png?snapshot_id=abc",
	} {
		code, body, _ := get(ws, path)
		testutil.AssertStatusCode(t, code, http.StatusInternalServerError)
		testutil.AssertBodyContains(t, body, "boom")
	}
}

func TestWebServer_ServeStopsOnCancel(t *testing.T) {
	ws := newServer(t, WebServerConfig{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ws.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestWebServer_RunBadAddress(t *testing.T) {
	ws := newServer(t, WebServerConfig{})
	err := ws.Run(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
