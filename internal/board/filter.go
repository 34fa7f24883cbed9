package board

import (
	"strconv"
	"strings"
	"unicode"
)

// FuzzyMatch reports whether every character of pattern appears in target in
// order, case-insensitively.
func FuzzyMatch(pattern, target string) bool {
	if pattern == "" {
		return true
	}
	if target == "" {
		return false
	}

	p := []rune(strings.ToLower(pattern))
	i := 0
	for _, r := range strings.ToLower(target) {
		if i < len(p) && p[i] == r {
			i++
		}
	}
	return i == len(p)
}

// FuzzyScore rates a match from 0 to 100, or -1 when pattern does not match.
// Consecutive runs and substring hits score higher; long targets score lower.
func FuzzyScore(pattern, target string) int {
	if !FuzzyMatch(pattern, target) {
		return -1
	}
	if pattern == "" {
		return 100
	}

	p := []rune(strings.ToLower(pattern))
	lowered := strings.ToLower(target)

	score, idx, run := 0, 0, 0
	pos := 0
	for _, r := range lowered {
		if idx < len(p) && p[idx] == r {
			idx++
			run++
			score += 10 + run
		} else {
			run = 0
		}
		if pos > len(p)*3 {
			score--
		}
		pos++
	}

	if strings.Contains(lowered, string(p)) {
		score += 20
	}

	maxScore := len(p) * 15
	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}
	return score * 100 / maxScore
}

// NormalizeSearchText lowercases text and drops punctuation other than '-'.
func NormalizeSearchText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchCard reports whether query matches the card's title, issue number
// ("#12" or "12") or one of its labels.
func MatchCard(c *Card, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	if c.Skeleton {
		return false
	}
	if c.IssueNumber > 0 {
		num := strconv.Itoa(c.IssueNumber)
		if strings.TrimPrefix(query, "#") == num {
			return true
		}
	}
	if FuzzyMatch(NormalizeSearchText(query), NormalizeSearchText(c.Title)) {
		return true
	}
	for _, l := range c.Labels {
		if strings.EqualFold(l, query) {
			return true
		}
	}
	return false
}

// FilterCards keeps the cards matching query in their current order.
func FilterCards(cards []*Card, query string) []*Card {
	if strings.TrimSpace(query) == "" {
		return cards
	}
	out := make([]*Card, 0, len(cards))
	for _, c := range cards {
		if MatchCard(c, query) {
			out = append(out, c)
		}
	}
	return out
}
