// Package lane turns detected line segments into lane geometry and lane
// offsets.
//
// Everything here is pure computation over pixel coordinates: slope
// classification, least-squares fitting of one representative line per side,
// the per-frame lane record format handed from the extractor to the offset
// computer, and the lane CSV codec. Image decoding and edge/line detection
// live in internal/vision.
package lane
