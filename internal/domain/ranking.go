package domain

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const maxPlayerNameRunes = 64

// SortRanking orders entries for the leaderboard: score descending, then earliest
// submission, then ledger id.
func SortRanking(entries []Submission) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].SubmittedAt.Equal(entries[j].SubmittedAt) {
			return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// NormalizePlayerName trims the name, substitutes AnonymousPlayer for blanks and
// caps the length.
func NormalizePlayerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return AnonymousPlayer
	}
	if utf8.RuneCountInString(name) > maxPlayerNameRunes {
		name = strings.TrimSpace(string([]rune(name)[:maxPlayerNameRunes]))
	}
	return name
}
