// Package labels translates between board columns and the GitHub labels that
// carry an issue's status. It has no side effects.
package labels

import "strings"

// Column identifies a board column.
type Column string

const (
	Backlog    Column = "backlog"
	InProgress Column = "in-progress"
	Review     Column = "review"
	Done       Column = "done"
)

// ArchiveLabel marks an issue that must not be placed on the board.
const ArchiveLabel = "archive"

// Columns returns the board vocabulary in display order.
func Columns() []Column {
	return []Column{Backlog, InProgress, Review, Done}
}

// Title is the column header shown to users.
func (c Column) Title() string {
	switch c {
	case Backlog:
		return "Backlog"
	case InProgress:
		return "In Progress"
	case Review:
		return "Review"
	case Done:
		return "Done"
	}
	return string(c)
}

// ParseColumn accepts a column id, its label or its title, case-insensitively.
func ParseColumn(s string) (Column, bool) {
	key := normalize(s)
	for _, c := range Columns() {
		if key == string(c) || key == normalize(c.Title()) {
			return c, true
		}
	}
	if c, ok := statusByLabel[key]; ok {
		return c, true
	}
	return "", false
}

// statusLabel holds the one label that represents each mapped column.
// Backlog is the unmapped baseline column.
var statusLabel = map[Column]string{
	InProgress: "in progress",
	Review:     "review",
	Done:       "done",
}

// statusByLabel is the reverse table, including the column ids as aliases.
var statusByLabel = map[string]Column{
	"in progress": InProgress,
	"in-progress": InProgress,
	"review":      Review,
	"done":        Done,
}

// ColumnToLabel returns the status label for a column, or false when the
// column carries no status label.
func ColumnToLabel(c Column) (string, bool) {
	l, ok := statusLabel[c]
	return l, ok
}

// LabelsToColumn returns the column of the first recognised status label,
// or Backlog when none matches.
func LabelsToColumn(names []string) Column {
	for _, n := range names {
		if c, ok := statusByLabel[normalize(n)]; ok {
			return c
		}
	}
	return Backlog
}

// IsStatusLabel reports whether name belongs to the status vocabulary.
func IsStatusLabel(name string) bool {
	_, ok := statusByLabel[normalize(name)]
	return ok
}

// StripStatus returns names without any status label, preserving order.
func StripStatus(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !IsStatusLabel(n) {
			out = append(out, n)
		}
	}
	return out
}

// LabelsForMove computes the full label set for an issue moved into c.
// Every status label is removed before the target's label is added, so at
// most one status label survives. Done adds nothing; the closed state
// expresses it.
func LabelsForMove(current []string, c Column) []string {
	out := StripStatus(current)
	if c == Done {
		return out
	}
	if l, ok := ColumnToLabel(c); ok {
		out = append(out, l)
	}
	return out
}

// IsArchived reports whether the archive sentinel is present.
func IsArchived(names []string) bool {
	for _, n := range names {
		if normalize(n) == ArchiveLabel {
			return true
		}
	}
	return false
}

// WithArchive returns names plus the archive sentinel, without duplicating it.
func WithArchive(names []string) []string {
	out := append([]string(nil), names...)
	if IsArchived(out) {
		return out
	}
	return append(out, ArchiveLabel)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
