package value

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page into [1, MaxPageLimit] and a non-negative offset.
func (p Page) Normalize() Page {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}

	if p.Offset < 0 {
		p.Offset = 0
	}

	return p
}
