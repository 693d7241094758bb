// Package roster reads competitor definitions from JSON.
//
// Accepted layouts are an object with a "competitors" array or a plain array:
//
//	{"competitors": [{"id": "C1", "name": "Alice", "speed": 5, "intervalMs": 800}]}
package roster

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/redlight-race-go/pkg/model"
	"github.com/mpapenbr/redlight-race-go/pkg/race"
)

var ErrEmptyRoster = errors.New("roster contains no competitors")

func LoadFile(file string) ([]model.RosterEntry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

func Parse(jsonData string) ([]model.RosterEntry, error) {
	obj, err := oj.ParseString(jsonData)
	if err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	var items []any
	if arr, ok := obj.([]any); ok {
		items = arr
	} else {
		path, err := jp.ParseString(`$.competitors[*]`)
		if err != nil {
			return nil, err
		}
		items = path.Get(obj)
	}
	if len(items) == 0 {
		return nil, ErrEmptyRoster
	}

	ret := make([]model.RosterEntry, 0, len(items))
	for i, item := range items {
		entry := model.RosterEntry{}
		if err := oj.Unmarshal([]byte(oj.JSON(item)), &entry); err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", i, err)
		}
		if entry.Speed < 0 || entry.IntervalMs < 0 {
			return nil, fmt.Errorf("roster entry %d: negative speed or interval", i)
		}
		ret = append(ret, entry)
	}
	return ret, nil
}

// Competitors creates race competitors from the entries.
// Missing ids and names are numbered by position, missing speeds and intervals are
// drawn from s using rng.
func Competitors(entries []model.RosterEntry, rng *rand.Rand, s race.CompetitorSettings) (
	[]*race.Competitor, error,
) {
	ret := make([]*race.Competitor, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("C%d", i+1)
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("duplicate competitor id %s", id)
		}
		seen[id] = struct{}{}
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		speed := e.Speed
		if speed == 0 {
			speed = race.DrawSpeed(rng, s)
		}
		interval := time.Duration(e.IntervalMs) * time.Millisecond
		if interval == 0 {
			interval = race.DrawInterval(rng, s)
		}
		ret = append(ret, race.NewCompetitor(id, name, speed, interval))
	}
	return ret, nil
}
