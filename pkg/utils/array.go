package utils

import (
	"golang.org/x/exp/constraints"
)

// Min returns the smallest item of a non-empty sequence.
func Min[T constraints.Ordered](input []T) T {
	m := input[0]
	for _, item := range input {
		if item < m {
			m = item
		}
	}
	return m
}

// Max returns the biggest item of a non-empty sequence.
func Max[T constraints.Ordered](input []T) T {
	m := input[0]
	for _, item := range input {
		if item > m {
			m = item
		}
	}
	return m
}
