package server

import (
	"fmt"
	"slices"
	"strconv"
)

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

// parsePointBatch decodes a JSON array of [x, y] pairs by hand; batch
// lookups arrive with tens of thousands of coordinates and do not need
// a full json decoder.
func parsePointBatch(data []byte, result *[][2]float64) error {
	i, n := 0, len(data)

	*result = slices.Grow(*result, n/16) // n/16 is a heuristic

	skip := func() {
		for i < n && isSpace(data[i]) {
			i++
		}
	}

	skip()
	if i >= n || data[i] != '[' {
		return fmt.Errorf("invalid format: expected '['")
	}
	i++

	for i < n {
		skip()
		if i < n && data[i] == ']' {
			return nil
		}
		if i >= n || data[i] != '[' {
			return fmt.Errorf("invalid format: expected '[' for point")
		}
		i++

		var point [2]float64
		for j := 0; j < 2; j++ {
			skip()
			start := i
			for i < n && (data[i] >= '0' && data[i] <= '9' ||
				data[i] == '-' || data[i] == '+' || data[i] == '.' ||
				data[i] == 'e' || data[i] == 'E') {
				i++
			}
			if start == i {
				return fmt.Errorf("invalid format: expected number")
			}
			num, err := strconv.ParseFloat(string(data[start:i]), 64)
			if err != nil {
				return fmt.Errorf("invalid number: %w", err)
			}
			point[j] = num

			skip()
			if j == 0 {
				if i >= n || data[i] != ',' {
					return fmt.Errorf("invalid format: expected ',' between coordinates")
				}
				i++
			}
		}

		if i >= n || data[i] != ']' {
			return fmt.Errorf("invalid format: expected ']' at end of point")
		}
		i++
		*result = append(*result, point)

		skip()
		if i < n && data[i] == ',' {
			i++
		}
	}

	return fmt.Errorf("invalid format: expected closing ']'")
}
