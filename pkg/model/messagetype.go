package model

import "fmt"

// EventKind identifies the kind of a RaceEvent
type EventKind int

const (
	EKUnknown              EventKind = 0
	EKRaceStarted          EventKind = 1
	EKSignalFlipped        EventKind = 2
	EKCountdownChanged     EventKind = 3
	EKCompetitorFinished   EventKind = 4
	EKCompetitorEliminated EventKind = 5
	EKRaceFinished         EventKind = 6
)

var eventKindNames = map[EventKind]string{
	EKUnknown:              "unknown",
	EKRaceStarted:          "raceStarted",
	EKSignalFlipped:        "signalFlipped",
	EKCountdownChanged:     "countdownChanged",
	EKCompetitorFinished:   "competitorFinished",
	EKCompetitorEliminated: "competitorEliminated",
	EKRaceFinished:         "raceFinished",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	for kind, name := range eventKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", string(text))
}
