package congestion

// Speeds is one observed (current, free-flow) speed pair for a coordinate.
// A missing or non-positive field means "no data", never an error.
type Speeds struct {
	Current  float64 `json:"current_speed"`
	FreeFlow float64 `json:"free_flow_speed"`
}

// Valid reports whether both speeds are usable. Negative and zero speeds
// are treated as missing.
func (s Speeds) Valid() bool {
	return s.Current > 0 && s.FreeFlow > 0
}

// Ratio returns current/free-flow speed. Only meaningful when Valid.
func (s Speeds) Ratio() float64 {
	return s.Current / s.FreeFlow
}

// Index converts a speed pair into the 0-100 traffic index, where 0 is
// free flow and 100 is standstill. Invalid pairs score 0.
func Index(s Speeds) float64 {
	if !s.Valid() {
		return 0
	}
	return clamp(100*(1-s.Ratio()), 0, 100)
}

// DelayMinutes is the per-stop delay contribution in minutes for a speed
// pair: 1.5 minutes scaled by how far current speed is below free flow.
// Invalid pairs contribute nothing.
func DelayMinutes(s Speeds) float64 {
	if !s.Valid() {
		return 0
	}
	d := (1 - s.Ratio()) * 1.5
	if d < 0 {
		return 0
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
