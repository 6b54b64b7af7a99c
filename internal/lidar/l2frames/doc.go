// Package l2frames owns Layer 2 (Frames) of the LiDAR data model.
//
// Responsibilities: the cartesian Point type, the PointSource abstraction
// that feeds the range-image builder, and point cloud file formats
// (PCD v0.7 ascii/binary, CloudCompare ASC).
// Key types: Point, PointSource, SlicePointSource, PCDFileSource.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2frames
