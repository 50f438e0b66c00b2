package ui

import (
	"sort"
	"strings"
)

// MaxDistance is the largest edit distance Suggest accepts
const MaxDistance = 2

// MaxSuggestions caps the names Suggest returns
const MaxSuggestions = 3

// Suggest returns the candidates closest to target, ignoring case
//
//	Suggest("emial", []string{"email", "media", "auth"}) // ["email"]
func Suggest(target string, candidates []string) []string {
	type match struct {
		name     string
		distance int
	}
	var matches []match
	target = strings.ToLower(target)
	for _, c := range candidates {
		if d := Distance(target, strings.ToLower(c)); d <= MaxDistance {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, MaxSuggestions)
	for i := 0; i < len(matches) && i < MaxSuggestions; i++ {
		out = append(out, matches[i].name)
	}
	return out
}

// Distance is the Levenshtein distance between a and b
func Distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = minOf(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func minOf(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
