// Package l3grid owns Layer 3 (Grid) of the LiDAR data model.
//
// Responsibilities: spherical projection of point clouds onto a fixed
// row x azimuth grid (the range image), the builder that fills it, channel
// statistics, and range-image snapshot serialisation.
// Key types: SensorGeometry, Builder, RangeImage, Snapshot.
//
// Convention: row indexes elevation (row 0 is the top of the field of view)
// and col indexes azimuth (col 0 is yaw -π, increasing counter-clockwise
// seen from above, with yaw 0 on +X at the centre column).
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
// No SQL/database code is allowed in this package.
package l3grid
