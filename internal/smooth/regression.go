// Package smooth de-noises irregular daily time series for plotting by
// fitting a least-squares line inside a centered day-window around each
// point and evaluating it at the point's own position.
package smooth

import "math"

// simpleRegression accumulates observations for an ordinary least-squares
// simple linear regression, using the updating formulas from Chan, Golub,
// and LeVeque (1983) for means and sums of squares.
type simpleRegression struct {
	sumX  float64
	sumXX float64 // sum of squared deviations from xBar
	sumY  float64
	sumXY float64
	n     int
	xBar  float64
	yBar  float64
}

// add appends the observation (x, y) to the regression data set.
func (r *simpleRegression) add(x, y float64) {
	if r.n > 0 {
		fact1 := 1 + float64(r.n)
		fact2 := float64(r.n) / fact1
		dx := x - r.xBar
		dy := y - r.yBar
		r.sumXX += dx * dx * fact2
		r.sumXY += dx * dy * fact2
		r.xBar += dx / fact1
		r.yBar += dy / fact1
	} else {
		r.xBar = x
		r.yBar = y
	}
	r.sumX += x
	r.sumY += y
	r.n++
}

// predict evaluates the fitted line at x. Returns NaN until at least two
// observations with distinct x values have been added.
func (r *simpleRegression) predict(x float64) float64 {
	slope := r.slope()
	return r.intercept(slope) + slope*x
}

func (r *simpleRegression) slope() float64 {
	if r.n < 2 {
		return math.NaN() // not enough data
	}
	if math.Abs(r.sumXX) < 10*math.SmallestNonzeroFloat64 {
		return math.NaN() // not enough variation in x
	}
	return r.sumXY / r.sumXX
}

func (r *simpleRegression) intercept(slope float64) float64 {
	return (r.sumY - slope*r.sumX) / float64(r.n)
}
