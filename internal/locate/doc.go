// Package locate implements the position solvers for a four-microphone
// array: linear multilateration from absolute distances (TOA) and a range
// search for distance differences (TDOA).
//
// Both solvers are pure functions of their inputs and may be called
// concurrently.
package locate
