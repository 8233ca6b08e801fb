package store

// Trait names, in canonical order.
var TraitNames = []string{"warmth", "logic", "creativity", "energy", "humor"}

// PersonalityVector holds the five behavioral dials, each in [0,100].
type PersonalityVector struct {
	Warmth     int `json:"warmth"`
	Logic      int `json:"logic"`
	Creativity int `json:"creativity"`
	Energy     int `json:"energy"`
	Humor      int `json:"humor"`
}

// DefaultPersonality returns the neutral starting vector.
func DefaultPersonality() PersonalityVector {
	return PersonalityVector{Warmth: 50, Logic: 50, Creativity: 50, Energy: 50, Humor: 50}
}

// Apply adds the named deltas, clamping each delta to [-bound, +bound] and
// each resulting trait to [0,100]. Unknown trait names are ignored.
func (p *PersonalityVector) Apply(deltas map[string]int, bound int) {
	for name, delta := range deltas {
		delta = clampInt(delta, -bound, bound)
		switch name {
		case "warmth":
			p.Warmth = clampInt(p.Warmth+delta, 0, 100)
		case "logic":
			p.Logic = clampInt(p.Logic+delta, 0, 100)
		case "creativity":
			p.Creativity = clampInt(p.Creativity+delta, 0, 100)
		case "energy":
			p.Energy = clampInt(p.Energy+delta, 0, 100)
		case "humor":
			p.Humor = clampInt(p.Humor+delta, 0, 100)
		}
	}
}

// Map returns the vector as a trait-name map, for serialization.
func (p PersonalityVector) Map() map[string]int {
	return map[string]int{
		"warmth":     p.Warmth,
		"logic":      p.Logic,
		"creativity": p.Creativity,
		"energy":     p.Energy,
		"humor":      p.Humor,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
