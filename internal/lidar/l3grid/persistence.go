package l3grid

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/banshee-data/rangeimage/internal/timeutil"
)

// Snapshot matches the range_image_snapshots table. It holds a compressed
// copy of a RangeImage for persistence.
type Snapshot struct {
	SnapshotID      *string // set by the store after insert
	SensorID        string
	TakenUnixNanos  int64
	FovUpDeg        float64
	FovDownDeg      float64
	Rows            int
	Cols            int
	CollisionPolicy string
	PointCount      int
	WrittenCells    int
	SkippedPoints   int
	Collisions      int
	GridBlob        []byte // gob+gzip gridPayload
}

// gridPayload is the serialised body of a snapshot.
type gridPayload struct {
	Cells   []PixelRecord
	Written []bool
}

// serializeGrid compresses the grid using gob encoding and gzip compression.
func serializeGrid(p gridPayload) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(p); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeGrid decompresses and decodes a gob+gzip grid blob.
func deserializeGrid(blob []byte) (gridPayload, error) {
	var p gridPayload
	if len(blob) == 0 {
		return p, fmt.Errorf("empty grid blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return p, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	if err := gob.NewDecoder(gz).Decode(&p); err != nil {
		return p, fmt.Errorf("failed to decode grid cells: %w", err)
	}
	return p, nil
}

// ToSnapshot serialises img for sensorID, stamped with the current time.
func ToSnapshot(img *RangeImage, sensorID string) (*Snapshot, error) {
	return ToSnapshotAt(img, sensorID, time.Now())
}

// ToSnapshotAt serialises img for sensorID, stamped with taken.
func ToSnapshotAt(img *RangeImage, sensorID string, taken time.Time) (*Snapshot, error) {
	if img == nil {
		return nil, fmt.Errorf("nil range image")
	}
	blob, err := serializeGrid(gridPayload{Cells: img.cells, Written: img.written})
	if err != nil {
		return nil, fmt.Errorf("serialize grid: %w", err)
	}
	g := img.geometry
	return &Snapshot{
		SensorID:        sensorID,
		TakenUnixNanos:  taken.UnixNano(),
		FovUpDeg:        g.fovUpDeg,
		FovDownDeg:      g.fovDownDeg,
		Rows:            g.rows,
		Cols:            g.cols,
		CollisionPolicy: img.policy.String(),
		PointCount:      img.stats.Points,
		WrittenCells:    img.stats.Written,
		SkippedPoints:   img.stats.Skipped,
		Collisions:      img.stats.Collisions,
		GridBlob:        blob,
	}, nil
}

// FromSnapshot rebuilds the image stored in snap.
func FromSnapshot(snap *Snapshot) (*RangeImage, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	g, err := NewSensorGeometry(snap.FovUpDeg, snap.FovDownDeg, snap.Rows, snap.Cols)
	if err != nil {
		return nil, fmt.Errorf("snapshot geometry: %w", err)
	}
	policy, err := ParseCollisionPolicy(snap.CollisionPolicy)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	p, err := deserializeGrid(snap.GridBlob)
	if err != nil {
		return nil, err
	}
	if len(p.Cells) != g.Cells() || len(p.Written) != g.Cells() {
		return nil, fmt.Errorf("snapshot grid has %d cells and %d flags, geometry %s needs %d",
			len(p.Cells), len(p.Written), g, g.Cells())
	}

	img := &RangeImage{geometry: g, policy: policy, cells: p.Cells, written: p.Written}
	img.stats = BuildStats{
		Points:     snap.PointCount,
		Written:    img.WrittenCount(),
		Skipped:    snap.SkippedPoints,
		Collisions: snap.Collisions,
	}
	return img, nil
}

// SnapshotStore persists Snapshot records. Implemented by
// storage/sqlite.RangeImageStore.
type SnapshotStore interface {
	InsertRangeImageSnapshot(s *Snapshot) (string, error)
}

// Persist serialises the image and writes it through store, returning the
// new snapshot id.
func (img *RangeImage) Persist(store SnapshotStore, sensorID string) (string, error) {
	return img.PersistAt(store, sensorID, timeutil.RealClock{})
}

// PersistAt is Persist with the snapshot time taken from clock.
func (img *RangeImage) PersistAt(store SnapshotStore, sensorID string, clock timeutil.Clock) (string, error) {
	if store == nil {
		return "", fmt.Errorf("nil snapshot store")
	}
	snap, err := ToSnapshotAt(img, sensorID, timeutil.Or(clock).Now())
	if err != nil {
		return "", err
	}
	id, err := store.InsertRangeImageSnapshot(snap)
	if err != nil {
		opsf("failed to persist range image for sensor %s: %v", sensorID, err)
		return "", err
	}
	diagf("Persisted snapshot: sensor=%s, id=%s, written_cells=%d/%d, grid_blob_size=%d bytes",
		sensorID, id, snap.WrittenCells, snap.Rows*snap.Cols, len(snap.GridBlob))
	return id, nil
}
