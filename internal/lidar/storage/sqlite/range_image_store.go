package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/rangeimage/internal/lidar/l3grid"
)

// RangeImageStore persists l3grid snapshots in the range_image_snapshots
// table.
type RangeImageStore struct {
	db *sql.DB
}

// NewRangeImageStore creates a new RangeImageStore.
func NewRangeImageStore(db *sql.DB) *RangeImageStore {
	return &RangeImageStore{db: db}
}

var _ l3grid.SnapshotStore = (*RangeImageStore)(nil)

const snapshotColumns = `snapshot_id, sensor_id, taken_unix_nanos, fov_up_deg, fov_down_deg,
		       rows, cols, collision_policy, point_count, written_cells,
		       skipped_points, collisions, grid_blob`

// InsertRangeImageSnapshot stores snap and returns its id. If
// snap.SnapshotID is nil a new UUID is generated and written back.
func (s *RangeImageStore) InsertRangeImageSnapshot(snap *l3grid.Snapshot) (string, error) {
	if snap == nil {
		return "", fmt.Errorf("insert range image snapshot: nil snapshot")
	}
	if snap.SnapshotID == nil || *snap.SnapshotID == "" {
		id := uuid.New().String()
		snap.SnapshotID = &id
	}

	_, err := s.db.Exec(`
		INSERT INTO range_image_snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		*snap.SnapshotID,
		snap.SensorID,
		snap.TakenUnixNanos,
		snap.FovUpDeg,
		snap.FovDownDeg,
		snap.Rows,
		snap.Cols,
		snap.CollisionPolicy,
		snap.PointCount,
		snap.WrittenCells,
		snap.SkippedPoints,
		snap.Collisions,
		snap.GridBlob,
	)
	if err != nil {
		return "", fmt.Errorf("insert range image snapshot: %w", err)
	}
	return *snap.SnapshotID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*l3grid.Snapshot, error) {
	snap := &l3grid.Snapshot{}
	var id string
	err := row.Scan(
		&id, &snap.SensorID, &snap.TakenUnixNanos, &snap.FovUpDeg, &snap.FovDownDeg,
		&snap.Rows, &snap.Cols, &snap.CollisionPolicy, &snap.PointCount, &snap.WrittenCells,
		&snap.SkippedPoints, &snap.Collisions, &snap.GridBlob,
	)
	if err != nil {
		return nil, err
	}
	snap.SnapshotID = &id
	return snap, nil
}

// Get returns the snapshot with the given id, or sql.ErrNoRows.
func (s *RangeImageStore) Get(snapshotID string) (*l3grid.Snapshot, error) {
	row := s.db.QueryRow(`SELECT `+snapshotColumns+` FROM range_image_snapshots WHERE snapshot_id = ?`, snapshotID)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get range image snapshot: %w", err)
	}
	return snap, nil
}

// Latest returns the most recent snapshot for sensorID, or nil when the
// sensor has none.
func (s *RangeImageStore) Latest(sensorID string) (*l3grid.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM range_image_snapshots
		WHERE sensor_id = ?
		ORDER BY taken_unix_nanos DESC, created_at DESC
		LIMIT 1`, sensorID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest range image snapshot: %w", err)
	}
	return snap, nil
}

// ListBySensor returns up to limit snapshots for sensorID, newest first.
// A limit of zero or less returns all of them.
func (s *RangeImageStore) ListBySensor(sensorID string, limit int) ([]*l3grid.Snapshot, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT `+snapshotColumns+`
		FROM range_image_snapshots
		WHERE sensor_id = ?
		ORDER BY taken_unix_nanos DESC
		LIMIT ?`, sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list range image snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*l3grid.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan range image snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Delete removes a snapshot by ID.
func (s *RangeImageStore) Delete(snapshotID string) error {
	result, err := s.db.Exec("DELETE FROM range_image_snapshots WHERE snapshot_id = ?", snapshotID)
	if err != nil {
		return fmt.Errorf("delete range image snapshot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete range image snapshot rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
