package selection

// Distance is a crowding distance value. Infinity is represented
// symbolically rather than as a float +Inf so it can never silently take
// part in arithmetic: adding to an infinite distance keeps it infinite.
// The zero value is "not yet assigned".
type Distance struct {
	Value    float64 `json:"value"`
	Infinite bool    `json:"infinite"`
	Assigned bool    `json:"assigned"`
}

// FiniteDistance returns an assigned, finite distance.
func FiniteDistance(v float64) Distance {
	return Distance{Value: v, Assigned: true}
}

// InfiniteDistance returns the symbolic infinite distance given to
// boundary solutions.
func InfiniteDistance() Distance {
	return Distance{Infinite: true, Assigned: true}
}

// Add accumulates a per-objective increment. Infinite distances absorb
// any increment and stay infinite.
func (d Distance) Add(delta float64) Distance {
	if d.Infinite {
		return d
	}
	return Distance{Value: d.Value + delta, Assigned: true}
}

// Less reports whether d orders strictly before other, treating infinity
// as larger than every finite value. Two infinite distances are equal.
func (d Distance) Less(other Distance) bool {
	if d.Infinite {
		return false
	}
	if other.Infinite {
		return true
	}
	return d.Value < other.Value
}

// Float returns a numeric view of the distance for diversity statistics.
// Infinite distances are excluded from such statistics by callers, so this
// only reports the finite component.
func (d Distance) Float() float64 {
	return d.Value
}
