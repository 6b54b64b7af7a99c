package sqlite

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeimage/internal/db"
	"github.com/banshee-data/rangeimage/internal/lidar/l2frames"
	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
)

func setupStore(t *testing.T) *RangeImageStore {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewRangeImageStore(database.DB)
}

func buildImage(t *testing.T, points ...l2frames.Point) *l3grid.RangeImage {
	t.Helper()
	b := &l3grid.Builder{Geometry: l3grid.MustSensorGeometry(2, -24.8, 64, 1024)}
	img, err := b.Build(points)
	require.NoError(t, err)
	return img
}

func snapshotAt(t *testing.T, img *l3grid.RangeImage, sensorID string, taken int64) *l3grid.Snapshot {
	t.Helper()
	snap, err := l3grid.ToSnapshot(img, sensorID)
	require.NoError(t, err)
	snap.TakenUnixNanos = taken
	return snap
}

func TestRangeImageStore_InsertGet(t *testing.T) {
	store := setupStore(t)
	img := buildImage(t, l2frames.Point{X: 1, Intensity: 0.5}, l2frames.Point{Y: 2})

	id, err := img.Persist(store, "lidar-01")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, *snap.SnapshotID)
	assert.Equal(t, "lidar-01", snap.SensorID)
	assert.Equal(t, 2, snap.WrittenCells)

	got, err := l3grid.FromSnapshot(snap)
	require.NoError(t, err)
	if diff := cmp.Diff(img.Cells(), got.Cells()); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}

	_, err = store.Get("missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRangeImageStore_KeepsCallerID(t *testing.T) {
	store := setupStore(t)
	snap := snapshotAt(t, buildImage(t, l2frames.Point{X: 1}), "lidar-01", 1)
	id := "fixed-id"
	snap.SnapshotID = &id

	got, err := store.InsertRangeImageSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", got)

	// Duplicate primary key.
	_, err = store.InsertRangeImageSnapshot(snap)
	assert.Error(t, err)

	_, err = store.InsertRangeImageSnapshot(nil)
	assert.Error(t, err)
}

func TestRangeImageStore_LatestAndList(t *testing.T) {
	store := setupStore(t)
	img := buildImage(t, l2frames.Point{X: 1})

	latest, err := store.Latest("lidar-01")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for _, taken := range []int64{100, 300, 200} {
		_, err := store.InsertRangeImageSnapshot(snapshotAt(t, img, "lidar-01", taken))
		require.NoError(t, err)
	}
	_, err = store.InsertRangeImageSnapshot(snapshotAt(t, img, "lidar-02", 999))
	require.NoError(t, err)

	latest, err = store.Latest("lidar-01")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(300), latest.TakenUnixNanos)

	all, err := store.ListBySensor("lidar-01", 0)
	require.NoError(t, err)
	var taken []int64
	for _, s := range all {
		taken = append(taken, s.TakenUnixNanos)
	}
	assert.Equal(t, []int64{300, 200, 100}, taken)

	two, err := store.ListBySensor("lidar-01", 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	none, err := store.ListBySensor("nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRangeImageStore_Delete(t *testing.T) {
	store := setupStore(t)
	id, err := store.InsertRangeImageSnapshot(snapshotAt(t, buildImage(t, l2frames.Point{X: 1}), "lidar-01", 1))
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	assert.True(t, errors.Is(store.Delete(id), sql.ErrNoRows))
}
