// Package l1packets owns Layer 1 (Packets) of the LiDAR data model.
//
// Responsibilities: PCAP replay and low-level Pandar40P byte parsing. This
// layer produces raw point arrays consumed by L2 (Frames) and, from there,
// by the range-image grid in L3.
//
// Dependency rule: L1 has no inward dependencies on higher layers.
package l1packets
