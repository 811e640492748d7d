// Package compare implements the numeric comparisons behind grading checks.
//
// Four comparison kinds are supported:
//
//   - Range: a scalar must lie between two bounds (inclusive or exclusive)
//   - Scalar tolerance: |actual - expected| <= abs + rel*|expected|, or
//     rounding to a number of decimal places
//   - Vector tolerance: the scalar tolerance applied element-wise
//   - Exact sequence: element-wise equality with no tolerance
//
// Every comparison returns nil on success and a *Mismatch describing the
// expected and actual values otherwise. Sequences of different lengths
// produce a *ShapeError, which callers treat as a structural failure
// regardless of the comparison kind.
package compare
