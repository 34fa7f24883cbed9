package main

import (
	"fmt"
	"strings"
	"testing"

	"ghboard/internal/board"
	"ghboard/internal/labels"
	"ghboard/internal/usercfg"
)

// largeModel builds a model whose columns hold n synthetic issues in total.
func largeModel(t *testing.T, n int) boardModel {
	t.Helper()
	svc := newTestService(t)
	m := initialBoardModel(svc, usercfg.Config{})
	m.width = 160
	m.height = 40
	m.loading = false

	// 40% backlog, 30% in progress, 30% done
	bounds := []int{0, n * 4 / 10, n * 7 / 10, n * 7 / 10, n}
	names := []labels.Column{labels.Backlog, labels.InProgress, labels.Review, labels.Done}
	for i, name := range names {
		col := svc.Board.Column(name)
		col.Cards = nil
		for num := bounds[i] + 1; num <= bounds[i+1]; num++ {
			col.Cards = append(col.Cards, board.NewIssueCard(num,
				fmt.Sprintf("Synthetic issue %d with a longer title to simulate real content", num),
				"", nil, name == labels.Done, ""))
		}
	}
	return m
}

// TestLargeListRendering checks that only a window of each column is drawn
func TestLargeListRendering(t *testing.T) {
	m := largeModel(t, 5000)

	view := m.View()
	if len(view) == 0 {
		t.Fatal("View should not be empty with synthetic data")
	}

	rendered := strings.Count(view, "Synthetic issue")
	maxVisible := m.itemsWindowCount() * len(m.views)
	if rendered > maxVisible {
		t.Errorf("Too many cards rendered: %d > %d (windowing may not be working)", rendered, maxVisible)
	}
	if !strings.Contains(view, "below") {
		t.Error("expected a \"… N below\" marker for long columns")
	}
}

// TestLargeListNavigation checks the viewport follows the cursor across a long column
func TestLargeListNavigation(t *testing.T) {
	m := largeModel(t, 10000)
	n := len(m.visibleCards(0))
	itemsWindow := m.itemsWindowCount()

	for _, cursor := range []int{n - 1, 0, n / 2} {
		m.views[0].cursor = cursor
		m.ensureCursorVisible(0)

		v := m.views[0]
		if v.cursor < v.offset || v.cursor >= v.offset+itemsWindow {
			t.Errorf("Cursor not visible: cursor=%d, offset=%d, window=%d", v.cursor, v.offset, itemsWindow)
		}
	}

	// Out of range cursors are clamped.
	m.views[0].cursor = n + 50
	m.ensureCursorVisible(0)
	if m.views[0].cursor != n-1 {
		t.Errorf("cursor = %d, want %d", m.views[0].cursor, n-1)
	}
	if want := n - itemsWindow; m.views[0].offset != want {
		t.Errorf("offset = %d, want %d", m.views[0].offset, want)
	}
}
