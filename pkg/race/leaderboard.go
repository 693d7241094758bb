package race

import "fmt"

type LeaderboardEntry struct {
	Rank         int
	CompetitorID string
	Name         string
}

// Leaderboard records finish arrivals. Entries are never removed or reordered.
type Leaderboard struct {
	entries []LeaderboardEntry
	ranks   map[string]int
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		entries: make([]LeaderboardEntry, 0),
		ranks:   make(map[string]int),
	}
}

// Append adds c as the next arrival and returns its rank.
// Appending the same competitor twice is a programming error and panics.
func (lb *Leaderboard) Append(c *Competitor) int {
	if _, ok := lb.ranks[c.ID()]; ok {
		panic(fmt.Sprintf("race: competitor %s already on leaderboard", c.ID()))
	}
	rank := len(lb.entries) + 1
	lb.entries = append(lb.entries, LeaderboardEntry{
		Rank:         rank,
		CompetitorID: c.ID(),
		Name:         c.Name(),
	})
	lb.ranks[c.ID()] = rank
	return rank
}

// Rank returns the 1-based arrival position of the competitor
func (lb *Leaderboard) Rank(id string) (int, bool) {
	rank, ok := lb.ranks[id]
	return rank, ok
}

// At returns the entry for the 1-based rank
func (lb *Leaderboard) At(rank int) (LeaderboardEntry, bool) {
	if rank < 1 || rank > len(lb.entries) {
		return LeaderboardEntry{}, false
	}
	return lb.entries[rank-1], true
}

func (lb *Leaderboard) Len() int {
	return len(lb.entries)
}

func (lb *Leaderboard) Snapshot() []LeaderboardEntry {
	ret := make([]LeaderboardEntry, len(lb.entries))
	copy(ret, lb.entries)
	return ret
}

// IDs returns the competitor ids in arrival order
func (lb *Leaderboard) IDs() []string {
	ret := make([]string, 0, len(lb.entries))
	for _, e := range lb.entries {
		ret = append(ret, e.CompetitorID)
	}
	return ret
}
