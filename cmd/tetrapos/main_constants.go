package main

// Output formatting
const (
	coordinatePrecision = 3 // decimals for mm values
	floatFormat         = 'f'
	floatBits           = 64
)

// CSV columns of batch output
var batchHeader = []string{"x", "y", "z", "status", "range", "residual", "iterations"}
