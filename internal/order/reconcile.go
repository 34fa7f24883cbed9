package order

import (
	"ghboard/internal/board"
	"ghboard/internal/labels"
)

// Apply reorders b according to saved. For every column with a non-empty
// saved list, keys resolve against the column first and then the whole
// board, so a card that changed columns follows its saved position. Closed
// issues never leave the done column this way. Cards the saved list does not
// mention keep their relative order after the resolved ones, and unknown keys
// are dropped. Applying the same order twice yields the same board.
//
// Apply is not reentrant; call it from the goroutine that owns b.
func Apply(b *board.Board, saved ColumnOrder) {
	if b == nil || len(saved) == 0 {
		return
	}

	// A card placed by an earlier column in this pass stays there.
	claimed := make(map[*board.Card]bool)

	for _, col := range b.Columns {
		keys := saved[col.Name]
		if len(keys) == 0 {
			continue
		}

		visible := col.Visible()
		local := make(map[string]*board.Card, len(visible))
		for _, c := range visible {
			if _, dup := local[c.Key()]; !dup {
				local[c.Key()] = c
			}
		}
		global := locate(b)

		fragment := make([]*board.Card, 0, len(visible))
		placed := make(map[*board.Card]bool, len(visible))
		for _, key := range keys {
			card, ok := local[key]
			if !ok {
				loc, found := global[key]
				if !found || loc.column == col {
					continue
				}
				card = loc.card
			}
			if claimed[card] || placed[card] {
				continue
			}
			if card.IsClosedIssue() && col.Name != labels.Done {
				continue
			}
			if loc, found := global[key]; found && loc.column != col && loc.card == card {
				detach(loc.column, card)
			}
			fragment = append(fragment, card)
			placed[card] = true
			claimed[card] = true
		}

		for _, c := range visible {
			if !placed[c] {
				fragment = append(fragment, c)
			}
		}

		// One assignment replaces the column's visible cards.
		col.Cards = append(col.Skeletons(), fragment...)
	}
}

type location struct {
	column *board.Column
	card   *board.Card
}

// locate indexes every visible card on the board by key. The first card
// seen wins for duplicate keys.
func locate(b *board.Board) map[string]location {
	out := make(map[string]location)
	for _, col := range b.Columns {
		for _, c := range col.Visible() {
			if _, dup := out[c.Key()]; !dup {
				out[c.Key()] = location{column: col, card: c}
			}
		}
	}
	return out
}

func detach(col *board.Column, card *board.Card) {
	for i, c := range col.Cards {
		if c == card {
			col.Cards = append(col.Cards[:i], col.Cards[i+1:]...)
			return
		}
	}
}
