package scoring

import "math"

// Pair links row Row to column Col of a weight matrix.
type Pair struct {
	Row int
	Col int
}

// MaxAssignment returns the one-to-one pairing of rows to columns with the
// largest total weight. Rectangular matrices pair min(rows, cols) entries.
// Rows must all have the same length.
func MaxAssignment(weights [][]float64) []Pair {
	rows := len(weights)
	if rows == 0 || len(weights[0]) == 0 {
		return nil
	}
	cols := len(weights[0])

	transposed := rows > cols
	n, m := rows, cols
	if transposed {
		n, m = cols, rows
	}
	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, m)
		for j := range cost[i] {
			if transposed {
				cost[i][j] = -weights[j][i]
			} else {
				cost[i][j] = -weights[i][j]
			}
		}
	}

	colFor := hungarian(cost)
	pairs := make([]Pair, 0, n)
	for i, j := range colFor {
		if j < 0 {
			continue
		}
		if transposed {
			pairs = append(pairs, Pair{Row: j, Col: i})
		} else {
			pairs = append(pairs, Pair{Row: i, Col: j})
		}
	}
	return pairs
}

// hungarian solves the minimum-cost assignment for an n×m matrix with n <= m
// and returns the column assigned to each row.
func hungarian(cost [][]float64) []int {
	n := len(cost)
	m := len(cost[0])
	inf := math.Inf(1)

	u := make([]float64, n+1)
	v := make([]float64, m+1)
	owner := make([]int, m+1) // 1-based row owning column j; 0 is free
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		owner[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := owner[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[owner[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if owner[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			owner[j0] = owner[j1]
			j0 = j1
		}
	}

	colFor := make([]int, n)
	for i := range colFor {
		colFor[i] = -1
	}
	for j := 1; j <= m; j++ {
		if owner[j] != 0 {
			colFor[owner[j]-1] = j - 1
		}
	}
	return colFor
}
