package monitor

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/rangeimage/internal/db"
	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
)

// SnapshotReader is the read side of the snapshot store.
// Implemented by storage/sqlite.RangeImageStore.
type SnapshotReader interface {
	Get(snapshotID string) (*l3grid.Snapshot, error)
	Latest(sensorID string) (*l3grid.Snapshot, error)
	ListBySensor(sensorID string, limit int) ([]*l3grid.Snapshot, error)
}

// WebServer serves range image summaries and debug renderings over HTTP.
// Images come from the most recently consumed image or, failing that,
// from Store.
type WebServer struct {
	store    SnapshotReader
	db       *db.DB
	sensorID string

	mu      sync.RWMutex
	current *l3grid.RangeImage
	handler http.Handler
	metrics *serverMetrics
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Store    SnapshotReader // optional
	DB       *db.DB         // optional; enables /debug/ admin routes
	SensorID string
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) (*WebServer, error) {
	ws := &WebServer{
		store:    config.Store,
		db:       config.DB,
		sensorID: config.SensorID,
		metrics:  newServerMetrics(),
	}
	mux, err := ws.setupRoutes()
	if err != nil {
		return nil, err
	}
	ws.handler = ws.metrics.middleware(mux)
	return ws, nil
}

// Handler returns the HTTP handler serving every route.
func (ws *WebServer) Handler() http.Handler { return ws.handler }

// Consume implements l3grid.ImageSink; the image becomes the one served
// when no snapshot_id is requested.
func (ws *WebServer) Consume(img *l3grid.RangeImage) error {
	if img == nil {
		return fmt.Errorf("nil range image")
	}
	ws.mu.Lock()
	ws.current = img
	ws.mu.Unlock()
	ws.metrics.observeImage(img)
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.Handle("/metrics", ws.metrics.handler())
	mux.HandleFunc("/api/range-image/latest", ws.handleLatest)
	mux.HandleFunc("/api/range-image/snapshots", ws.handleSnapshots)
	mux.HandleFunc("/debug/range-image/heatmap", ws.handleHeatmap)
	mux.HandleFunc("/debug/range-image/png", ws.handlePNG)

	if ws.db != nil {
		if err := ws.db.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return ws.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (ws *WebServer) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{Handler: ws.handler, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		diagf("Starting HTTP server on %s", ln.Addr())
		errc <- server.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	diagf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		opsf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			opsf("HTTP server force close error: %v", err)
		}
	}
	<-errc
	diagf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		opsf("failed to encode response: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	ws.writeJSON(w, status, map[string]string{"error": msg})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errNoImage is returned by image when nothing is available to serve.
var errNoImage = errors.New("no range image available")

// image resolves the image for a request: ?snapshot_id from the store,
// else the consumed image, else the latest snapshot for the sensor.
func (ws *WebServer) image(r *http.Request) (*l3grid.RangeImage, error) {
	sensorID := r.URL.Query().Get("sensor_id")
	if sensorID == "" {
		sensorID = ws.sensorID
	}

	if id := r.URL.Query().Get("snapshot_id"); id != "" {
		if ws.store == nil {
			return nil, errNoImage
		}
		snap, err := ws.store.Get(id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNoImage
		}
		if err != nil {
			return nil, fmt.Errorf("load snapshot %s: %w", id, err)
		}
		return l3grid.FromSnapshot(snap)
	}

	ws.mu.RLock()
	current := ws.current
	ws.mu.RUnlock()
	if current != nil && sensorID == ws.sensorID {
		return current, nil
	}

	if ws.store == nil {
		return nil, errNoImage
	}
	snap, err := ws.store.Latest(sensorID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errNoImage
	}
	return l3grid.FromSnapshot(snap)
}

func (ws *WebServer) imageOrError(w http.ResponseWriter, r *http.Request) *l3grid.RangeImage {
	img, err := ws.image(r)
	switch {
	case errors.Is(err, errNoImage):
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return nil
	case err != nil:
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	return img
}

// channel parses ?channel, defaulting to range.
func channel(r *http.Request) (l3grid.Channel, error) {
	name := r.URL.Query().Get("channel")
	if name == "" {
		return l3grid.ChannelRange, nil
	}
	return l3grid.ParseChannel(name)
}

type imageSummary struct {
	SensorID        string                   `json:"sensor_id"`
	Geometry        string                   `json:"geometry"`
	Rows            int                      `json:"rows"`
	Cols            int                      `json:"cols"`
	CollisionPolicy string                   `json:"collision_policy"`
	Points          int                      `json:"points"`
	WrittenCells    int                      `json:"written_cells"`
	SkippedPoints   int                      `json:"skipped_points"`
	Collisions      int                      `json:"collisions"`
	Channels        map[string]channelDigest `json:"channels"`
}

type channelDigest struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
}

func summarize(sensorID string, img *l3grid.RangeImage) imageSummary {
	stats := img.Stats()
	s := imageSummary{
		SensorID:        sensorID,
		Geometry:        img.Geometry().String(),
		Rows:            img.Rows(),
		Cols:            img.Cols(),
		CollisionPolicy: img.CollisionPolicy().String(),
		Points:          stats.Points,
		WrittenCells:    stats.Written,
		SkippedPoints:   stats.Skipped,
		Collisions:      stats.Collisions,
		Channels:        make(map[string]channelDigest),
	}
	for _, ch := range []l3grid.Channel{l3grid.ChannelRange, l3grid.ChannelIntensity} {
		cs := l3grid.Summarize(img, ch)
		s.Channels[ch.String()] = channelDigest{
			Count: cs.Count, Min: cs.Min, Max: cs.Max, Mean: cs.Mean, StdDev: cs.StdDev, Median: cs.Median,
		}
	}
	return s
}

func (ws *WebServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	img := ws.imageOrError(w, r)
	if img == nil {
		return
	}
	sensorID := r.URL.Query().Get("sensor_id")
	if sensorID == "" {
		sensorID = ws.sensorID
	}
	ws.writeJSON(w, http.StatusOK, summarize(sensorID, img))
}

type snapshotInfo struct {
	SnapshotID      string  `json:"snapshot_id"`
	SensorID        string  `json:"sensor_id"`
	TakenUnixNanos  int64   `json:"taken_unix_nanos"`
	FovUpDeg        float64 `json:"fov_up_deg"`
	FovDownDeg      float64 `json:"fov_down_deg"`
	Rows            int     `json:"rows"`
	Cols            int     `json:"cols"`
	CollisionPolicy string  `json:"collision_policy"`
	PointCount      int     `json:"point_count"`
	WrittenCells    int     `json:"written_cells"`
	GridBlobBytes   int     `json:"grid_blob_bytes"`
}

func (ws *WebServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}
	sensorID := r.URL.Query().Get("sensor_id")
	if sensorID == "" {
		sensorID = ws.sensorID
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			ws.writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	snaps, err := ws.store.ListBySensor(sensorID, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list snapshots: %v", err))
		return
	}
	out := make([]snapshotInfo, 0, len(snaps))
	for _, s := range snaps {
		info := snapshotInfo{
			SensorID:        s.SensorID,
			TakenUnixNanos:  s.TakenUnixNanos,
			FovUpDeg:        s.FovUpDeg,
			FovDownDeg:      s.FovDownDeg,
			Rows:            s.Rows,
			Cols:            s.Cols,
			CollisionPolicy: s.CollisionPolicy,
			PointCount:      s.PointCount,
			WrittenCells:    s.WrittenCells,
			GridBlobBytes:   len(s.GridBlob),
		}
		if s.SnapshotID != nil {
			info.SnapshotID = *s.SnapshotID
		}
		out = append(out, info)
	}
	ws.writeJSON(w, http.StatusOK, out)
}

func (ws *WebServer) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	ch, err := channel(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	img := ws.imageOrError(w, r)
	if img == nil {
		return
	}

	var buf bytes.Buffer
	if err := WriteHeatmapHTML(img, ch, &buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (ws *WebServer) handlePNG(w http.ResponseWriter, r *http.Request) {
	ch, err := channel(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	img := ws.imageOrError(w, r)
	if img == nil {
		return
	}

	var buf bytes.Buffer
	if err := RenderPNG(img, ch, &buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
