// Package geom implements the Manhattan polygon engine used by the fill
// pipeline.
//
// All coordinates are integer database units (see [DBU]). A [Region] is a
// point set stored in canonical horizontal-band form: a sorted list of
// y-bands, each holding sorted, disjoint, non-touching x-intervals, with
// vertically adjacent bands of identical intervals coalesced. Two regions
// covering the same area therefore have identical representations, which
// makes boolean composition deterministic and [Region.Equal] exact.
//
// # Operations
//
//   - Construction: [NewRegion], [FromPolygon], [FromPolygons]
//   - Booleans: [Region.Union], [Region.Intersect], [Region.Subtract]
//   - Sizing: [Region.Sized] (positive grows, negative shrinks) with square corners
//   - Measurement: [Region.Area], [Region.BBox]
//   - Output: [Region.Polygons], [Region.Rects]
//
// Polygons produced by [Region.Polygons] have a deterministic vertex order:
// outer loops run counter-clockwise from their bottom-left vertex, holes run
// clockwise. Collinear vertices are removed, so a rectangle always has four
// vertices and a rectangle with one clipped corner has six.
//
// Non-Manhattan input edges are accepted by [FromPolygon] and approximated
// per band at the band's mid-height, which preserves area.
package geom
