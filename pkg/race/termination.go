package race

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/model"
)

// terminationRule reports whether the race ends in the current state.
// Rules are checked in order, the first match wins.
type terminationRule func(r *Race) (Outcome, bool)

var terminationRules = []terminationRule{
	timeoutRule,
	allEliminatedRule,
	soleSurvivorRule,
	completionRule,
}

func timeoutRule(r *Race) (Outcome, bool) {
	return Outcome{Reason: ReasonTimeout}, r.remaining == 0
}

func allEliminatedRule(r *Race) (Outcome, bool) {
	return Outcome{Reason: ReasonAllEliminated},
		len(r.racing()) == 0 && r.leaderboard.Len() == 0
}

func soleSurvivorRule(r *Race) (Outcome, bool) {
	if r.winMode != WinModeSoleSurvivor || len(r.competitors) < 2 {
		return Outcome{}, false
	}
	racing := r.racing()
	if len(racing) != 1 {
		return Outcome{}, false
	}
	eliminated := lo.CountBy(r.competitors, func(c *Competitor) bool {
		return c.Status() == Eliminated
	})
	if eliminated != len(r.competitors)-1 {
		return Outcome{}, false
	}
	return Outcome{Reason: ReasonSoleSurvivor, WinnerID: racing[0].ID()}, true
}

func completionRule(r *Race) (Outcome, bool) {
	return Outcome{Reason: ReasonCompleted}, len(r.racing()) == 0
}

func (r *Race) evaluate() {
	if r.finished {
		return
	}
	for _, rule := range terminationRules {
		if outcome, ok := rule(r); ok {
			r.conclude(outcome)
			return
		}
	}
}

func (r *Race) conclude(o Outcome) {
	var msg string
	switch o.Reason {
	case ReasonTimeout:
		for _, c := range r.racing() {
			r.eliminate(c, fmt.Sprintf("%s Eliminated! (time is up)", c.Name()))
		}
		msg = "Time's Up! All Players Eliminated."
	case ReasonAllEliminated:
		msg = "Game Over! All Players Eliminated."
	case ReasonSoleSurvivor:
		winner := r.byID[o.WinnerID]
		r.finish(winner, fmt.Sprintf("%s Wins!", winner.Name()))
		msg = fmt.Sprintf("%s Wins!", winner.Name())
	case ReasonCompleted:
		msg = "Race completed."
	case ReasonNone:
	}
	r.finished = true
	r.outcome = o
	r.l.Info("race finished",
		log.String("id", r.id),
		log.Stringer("reason", o.Reason),
		log.String("winner", o.WinnerID),
		log.Int("finishers", r.leaderboard.Len()),
		log.Int("remaining", r.remaining))
	r.emit(model.RaceEvent{
		Kind:      model.EKRaceFinished,
		Remaining: r.remaining,
		Reason:    o.Reason.String(),
		WinnerID:  o.WinnerID,
		Message:   msg,
	})
}
