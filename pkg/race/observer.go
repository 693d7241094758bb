package race

import "github.com/mpapenbr/redlight-race-go/pkg/model"

// Observer receives race events synchronously from the engine.
// Implementations must not block and must not call back into the race.
type Observer interface {
	OnEvent(e model.RaceEvent)
}

type ObserverFunc func(e model.RaceEvent)

func (f ObserverFunc) OnEvent(e model.RaceEvent) {
	f(e)
}

type nopObserver struct{}

func (nopObserver) OnEvent(model.RaceEvent) {}

// MultiObserver forwards each event to all observers in order
func MultiObserver(observers ...Observer) Observer {
	return ObserverFunc(func(e model.RaceEvent) {
		for _, o := range observers {
			o.OnEvent(e)
		}
	})
}
