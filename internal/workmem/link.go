package workmem

import "fmt"

// LinkKind distinguishes activation-routing link types.
type LinkKind string

const (
	Cooperation LinkKind = "cooperation"
	Competition LinkKind = "competition"
)

// Link routes activation from one instance to another. For cooperation
// links From fills the slot ToPort of To.
type Link struct {
	ID       string   `json:"id"`
	Kind     LinkKind `json:"kind"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Weight   float64  `json:"weight"`
	FromPort string   `json:"from_port,omitempty"`
	ToPort   string   `json:"to_port,omitempty"`
}

func (l Link) String() string {
	if l.Kind == Cooperation {
		return fmt.Sprintf("%s %s:%s -> %s:%s (%.3f)", l.Kind, l.From, l.FromPort, l.To, l.ToPort, l.Weight)
	}
	return fmt.Sprintf("%s %s -> %s (%.3f)", l.Kind, l.From, l.To, l.Weight)
}

// Touches reports whether id is an endpoint of the link.
func (l Link) Touches(id string) bool {
	return l.From == id || l.To == id
}

// LinkQuery filters links. Empty fields match anything.
type LinkQuery struct {
	Kind   LinkKind
	From   string
	To     string
	ToPort string
	// Touching matches links with this instance at either end.
	Touching string
}

func (q LinkQuery) matches(l Link) bool {
	if q.Kind != "" && l.Kind != q.Kind {
		return false
	}
	if q.From != "" && l.From != q.From {
		return false
	}
	if q.To != "" && l.To != q.To {
		return false
	}
	if q.ToPort != "" && l.ToPort != q.ToPort {
		return false
	}
	if q.Touching != "" && !l.Touches(q.Touching) {
		return false
	}
	return true
}
