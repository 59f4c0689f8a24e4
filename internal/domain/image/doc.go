// Package image provides the owning 2-D pixel container, non-owning
// views, lazy pixel expressions and the utility operations the
// correlation engine is built from.
//
// An Image owns a contiguous row-major buffer and carries its own
// rectangle, so an image can know its position in a larger frame. A
// View is a rectangular window onto an Image sharing the same buffer;
// views of views compose their origins at construction and always hold
// a direct reference to the owning image, never to another view.
//
// Both satisfy ImageLike, the capability set the generic operations are
// written against. Line returns a writable sub-slice of the underlying
// buffer, so a single interface serves reads and writes.
//
// Expressions build small lazy trees (references, broadcast constants,
// binary and unary nodes) that evaluate element-wise in one pass when
// assigned into a destination image with EvalInto, avoiding
// intermediate allocations in hot correlation paths.
package image
