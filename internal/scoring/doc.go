// Package scoring computes pairwise compatibility.
//
// Everything here is a pure function over explicit inputs: no persistence, no
// clocks except the timestamp stamped on a CompatibilityResult. Numerical edge
// cases (empty sets, missing answers, NaN, out-of-range degrees) are recovered
// locally to neutral defaults and never returned as errors.
package scoring
