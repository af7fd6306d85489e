package domain

// Dirt describes how much of the cached computation an external change invalidates.
// The levels are ordered: a higher level implies everything a lower level implies.
type Dirt int

const (
	Clean  Dirt = iota // Nothing changed
	Dirty              // Some branches or partials must be recomputed
	Filthy             // Everything must be recomputed (data or scale factors changed)
)

// String returns the lowercase name of the level.
func (d Dirt) String() string {
	switch d {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Filthy:
		return "filthy"
	default:
		return "unknown"
	}
}

// Max returns the more severe of the two levels.
func (d Dirt) Max(other Dirt) Dirt {
	if other > d {
		return other
	}
	return d
}
