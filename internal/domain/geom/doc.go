// Package geom provides the geometric primitives shared by the imaging
// and correlation layers: sizes, points, vectors and rectangles.
//
// All types are immutable value objects. Operations that could produce
// a geometrically invalid result (a negative dimension, an inverted
// rectangle, a narrowing conversion that would truncate) return an
// error instead of silently clamping.
//
// Coordinate convention: x grows right, y grows up, and a rectangle is
// anchored at its bottom-left corner. Interval tests (Within, Contains)
// are closed on both ends.
package geom
