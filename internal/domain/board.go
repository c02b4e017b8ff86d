package domain

// Board is the top-level container of lists for one study plan.
type Board struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Lists []*List `json:"lists"`
}

// List is a named column of cards.
type List struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Cards []*Card `json:"cards"`

	// AddingCard is UI state only and never leaves the process.
	AddingCard bool `json:"-"`
}

// VisibleCards returns the cards that are neither archived nor deleted, in
// board order.
func (l *List) VisibleCards() []*Card {
	out := make([]*Card, 0, len(l.Cards))
	for _, c := range l.Cards {
		if c.Visible() {
			out = append(out, c)
		}
	}
	return out
}
