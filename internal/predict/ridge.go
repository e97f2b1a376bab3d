package predict

import "fmt"

// ridgeFit solves the regularized normal equations
// (X'X + lambda*I) b = X'y for rows with an implicit leading intercept
// column. The intercept is not penalized.
func ridgeFit(rows [][]float64, y []float64, lambda float64) ([]float64, error) {
	p := numFeatures + 1
	a := make([][]float64, p)
	for i := range a {
		a[i] = make([]float64, p)
	}
	b := make([]float64, p)

	for r, row := range rows {
		x := make([]float64, p)
		x[0] = 1
		copy(x[1:], row)
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				a[i][j] += x[i] * x[j]
			}
			b[i] += x[i] * y[r]
		}
	}
	for i := 1; i < p; i++ {
		a[i][i] += lambda
	}

	return solveLinear(a, b)
}

// solveLinear runs Gaussian elimination with partial pivoting. The system
// is tiny (6x6) so numerical refinement is not worth the code.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if abs(a[r][col]) > abs(a[pivot][col]) {
				pivot = r
			}
		}
		if abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("predict: singular normal equations (column %d)", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
