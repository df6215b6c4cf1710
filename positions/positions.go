// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package positions

import (
	"sort"

	"github.com/danielhkuo/clearballot/models"
)

// Assignment maps one candidate to one position title.
type Assignment struct {
	CandidateID string
	Position    string
	Rank        int // 1-indexed
}

// Assign ranks candidates by vote count and hands out position titles
// in ranked order, one per candidate, stopping when titles or
// candidates run out.
//
// Ties break on candidate creation time, then ID, so the output is a
// pure function of the final tallies and the roster: re-running on the
// same inputs yields the identical assignment.
func Assign(candidates []models.Candidate, titles []string) []Assignment {
	ranked := make([]models.Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].VoteCount != ranked[j].VoteCount {
			return ranked[i].VoteCount > ranked[j].VoteCount
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].ID < ranked[j].ID
	})

	n := len(ranked)
	if len(titles) < n {
		n = len(titles)
	}

	assignments := make([]Assignment, 0, n)
	for i := 0; i < n; i++ {
		assignments = append(assignments, Assignment{
			CandidateID: ranked[i].ID,
			Position:    titles[i],
			Rank:        i + 1,
		})
	}
	return assignments
}
