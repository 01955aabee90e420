package smooth

import "time"

// Point is one (date, value) sample in a daily series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Smooth applies a centered windowed linear regression to a daily series and
// returns a series of identical length and date alignment. For each point at
// date d, every input point whose date falls in
// [d - windowDays/2, d + (windowDays-1)/2] (integer day arithmetic) feeds an
// OLS fit over (day offset, value) pairs, and the fitted line is evaluated
// at d's own offset. Windows at the series edges are truncated, not padded;
// a window holding a single point degenerates to that point's own value.
// The input must be sorted by date ascending.
func Smooth(series []Point, windowDays int) []Point {
	if len(series) == 0 {
		return nil
	}

	origin := series[0].Date
	offsets := make([]int, len(series))
	for i, p := range series {
		offsets[i] = dayOffset(origin, p.Date)
	}

	lead := windowDays / 2
	trail := (windowDays - 1) / 2

	out := make([]Point, len(series))
	for i, p := range series {
		lo := offsets[i] - lead
		hi := offsets[i] + trail

		var reg simpleRegression
		var inWindow int
		var last float64
		for j, q := range series {
			if offsets[j] < lo || offsets[j] > hi {
				continue
			}
			reg.add(float64(offsets[j]), q.Value)
			inWindow++
			last = q.Value
		}

		smoothed := p.Value
		if inWindow == 1 {
			smoothed = last
		} else if inWindow > 1 {
			smoothed = reg.predict(float64(offsets[i]))
		}

		out[i] = Point{Date: p.Date, Value: smoothed}
	}
	return out
}

func dayOffset(origin, date time.Time) int {
	return int(date.Sub(origin).Hours() / 24)
}
