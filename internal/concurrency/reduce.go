// File: internal/concurrency/reduce.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"fmt"
	"strings"

	"github.com/momentics/batchsync/api"
)

// Reducer folds a drained batch into a single value.
type Reducer func(values []int64) int64

// Sum adds every value of the batch.
func Sum(values []int64) int64 {
	var t int64
	for _, v := range values {
		t += v
	}
	return t
}

// Min returns the smallest value, 0 for an empty batch.
func Min(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		m = min(m, v)
	}
	return m
}

// Max returns the largest value, 0 for an empty batch.
func Max(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		m = max(m, v)
	}
	return m
}

// ReducerByName resolves "sum", "min" or "max". Empty means sum.
func ReducerByName(name string) (Reducer, error) {
	switch strings.ToLower(name) {
	case "", "sum":
		return Sum, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	}
	return nil, fmt.Errorf("%w: unknown reducer %q", api.ErrInvalidArgument, name)
}
