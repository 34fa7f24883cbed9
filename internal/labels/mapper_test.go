package labels

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestColumnToLabel(t *testing.T) {
	tests := []struct {
		col   Column
		label string
		ok    bool
	}{
		{Backlog, "", false},
		{InProgress, "in progress", true},
		{Review, "review", true},
		{Done, "done", true},
		{Column("someday"), "", false},
	}
	for _, tt := range tests {
		got, ok := ColumnToLabel(tt.col)
		if got != tt.label || ok != tt.ok {
			t.Errorf("ColumnToLabel(%q) = (%q, %v), want (%q, %v)", tt.col, got, ok, tt.label, tt.ok)
		}
	}
}

func TestLabelsToColumn(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   Column
	}{
		{"no labels", nil, Backlog},
		{"unrelated labels", []string{"bug", "ui"}, Backlog},
		{"in progress", []string{"bug", "in progress"}, InProgress},
		{"case insensitive", []string{"In Progress"}, InProgress},
		{"column id alias", []string{"in-progress"}, InProgress},
		{"review", []string{"Review"}, Review},
		{"done", []string{"DONE"}, Done},
		{"first match wins", []string{"review", "in progress"}, Review},
		{"surrounding whitespace", []string{"  review "}, Review},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabelsToColumn(tt.labels); got != tt.want {
				t.Errorf("LabelsToColumn(%v) = %q, want %q", tt.labels, got, tt.want)
			}
		})
	}
}

func TestLabelsForMove_MutualExclusion(t *testing.T) {
	current := []string{"bug", "In Progress", "review", "frontend"}

	tests := []struct {
		col  Column
		want []string
	}{
		{Backlog, []string{"bug", "frontend"}},
		{InProgress, []string{"bug", "frontend", "in progress"}},
		{Review, []string{"bug", "frontend", "review"}},
		{Done, []string{"bug", "frontend"}},
	}
	for _, tt := range tests {
		got := LabelsForMove(current, tt.col)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("LabelsForMove(%q) mismatch (-want +got):\n%s", tt.col, diff)
		}
	}

	// The input slice is left untouched.
	if diff := cmp.Diff([]string{"bug", "In Progress", "review", "frontend"}, current); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

func TestLabelRoundTripForEveryColumn(t *testing.T) {
	for _, col := range Columns() {
		var set []string
		if l, ok := ColumnToLabel(col); ok {
			set = []string{l}
		}
		back := LabelsToColumn(append([]string{"bug"}, set...))
		if back != col {
			t.Errorf("column %q round-tripped to %q", col, back)
		}

		relabelled := LabelsForMove([]string{"bug", "review", "in progress"}, back)
		statuses := 0
		for _, l := range relabelled {
			if IsStatusLabel(l) {
				statuses++
			}
		}
		if statuses > 1 {
			t.Errorf("column %q produced %d status labels: %v", col, statuses, relabelled)
		}
		if col != Done && col != Backlog && statuses != 1 {
			t.Errorf("column %q should carry exactly one status label, got %v", col, relabelled)
		}
		if col != Done && LabelsToColumn(relabelled) != col {
			t.Errorf("column %q not recoverable from %v", col, relabelled)
		}
	}
}

func TestArchive(t *testing.T) {
	if IsArchived([]string{"bug"}) {
		t.Error("bug is not archive")
	}
	if !IsArchived([]string{"bug", "Archive"}) {
		t.Error("archive match is case-insensitive")
	}
	got := WithArchive([]string{"bug"})
	if diff := cmp.Diff([]string{"bug", "archive"}, got); diff != "" {
		t.Errorf("WithArchive mismatch (-want +got):\n%s", diff)
	}
	if again := WithArchive(got); len(again) != 2 {
		t.Errorf("WithArchive duplicated sentinel: %v", again)
	}
}

func TestParseColumn(t *testing.T) {
	tests := map[string]Column{
		"backlog":     Backlog,
		"In Progress": InProgress,
		"in-progress": InProgress,
		"REVIEW":      Review,
		"done":        Done,
	}
	for in, want := range tests {
		got, ok := ParseColumn(in)
		if !ok || got != want {
			t.Errorf("ParseColumn(%q) = (%q, %v), want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseColumn("icebox"); ok {
		t.Error("icebox is not a column")
	}
}
