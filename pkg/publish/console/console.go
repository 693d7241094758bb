// Package console renders race events and results as text.
package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mpapenbr/redlight-race-go/pkg/model"
)

type Renderer struct {
	w              io.Writer
	countdownEvery int
}

type Option func(r *Renderer)

// WithCountdownEvery prints the countdown every n seconds and for the last 5 seconds.
// 0 disables countdown output.
func WithCountdownEvery(n int) Option {
	return func(r *Renderer) {
		r.countdownEvery = n
	}
}

func New(w io.Writer, opts ...Option) *Renderer {
	ret := &Renderer{w: w, countdownEvery: 10}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Consume renders events until ch is closed
func (r *Renderer) Consume(ch <-chan model.RaceEvent) {
	for e := range ch {
		r.Render(e)
	}
}

func (r *Renderer) Render(e model.RaceEvent) {
	var text string
	switch e.Kind {
	case model.EKRaceStarted:
		text = fmt.Sprintf("Race %s started (%ds). %s", e.RaceID, e.Remaining, e.Message)
	case model.EKSignalFlipped:
		text = e.Message
	case model.EKCountdownChanged:
		if !r.showCountdown(e.Remaining) {
			return
		}
		text = fmt.Sprintf("Time left: %ds", e.Remaining)
	case model.EKCompetitorFinished:
		text = fmt.Sprintf("%s (rank %d)", e.Message, e.Rank)
	case model.EKCompetitorEliminated:
		text = fmt.Sprintf("%s (at %.1f)", e.Message, e.Progress)
	case model.EKRaceFinished:
		text = e.Message
	case model.EKUnknown:
		return
	}
	fmt.Fprintf(r.w, "[%s] %s\n", FormatElapsed(e.Elapsed), text)
}

func (r *Renderer) showCountdown(remaining int) bool {
	if r.countdownEvery <= 0 {
		return false
	}
	return remaining%r.countdownEvery == 0 || remaining <= 5
}

// FormatElapsed formats d as mm:ss.mmm
func FormatElapsed(d time.Duration) string {
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}

// WriteResult prints the leaderboard followed by the final standings of all competitors
func WriteResult(w io.Writer, res *model.RaceResult) error {
	fmt.Fprintf(w, "\nRace %s: %s", res.ID, res.Reason)
	if res.WinnerID != "" {
		fmt.Fprintf(w, " (winner %s)", res.WinnerID)
	}
	fmt.Fprintln(w)

	ranked := make([]model.Standing, 0, len(res.Standings))
	for _, s := range res.Standings {
		if s.Rank > 0 {
			ranked = append(ranked, s)
		}
	}
	if len(ranked) > 0 {
		fmt.Fprintln(w, "Leaderboard:")
		for _, s := range ranked {
			fmt.Fprintf(w, "%d. %s\n", s.Rank, s.Name)
		}
	} else {
		fmt.Fprintln(w, "Leaderboard: nobody finished")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tID\tNAME\tSTATUS\tPROGRESS\tSPEED\tINTERVAL\tRANK")
	for _, s := range res.Standings {
		rank := "-"
		if s.Rank > 0 {
			rank = fmt.Sprintf("%d", s.Rank)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%.2f\t%dms\t%s\n",
			s.Pos, s.CompetitorID, s.Name, s.Status, s.Progress, s.Speed, s.IntervalMs, rank)
	}
	return tw.Flush()
}

// WriteResultList prints one line per stored race
func WriteResultList(w io.Writer, results []*model.RaceResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tREASON\tWINNER\tFINISHERS\tCOMPETITORS")
	for _, res := range results {
		finishers := make([]string, 0)
		for _, s := range res.Standings {
			if s.Rank > 0 {
				finishers = append(finishers, s.Name)
			}
		}
		winner := res.WinnerID
		if winner == "" {
			winner = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			res.ID,
			res.StartedAt.Format(time.RFC3339),
			res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond),
			res.Reason,
			winner,
			strings.Join(finishers, ","),
			res.Settings.Competitors)
	}
	return tw.Flush()
}
