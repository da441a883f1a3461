/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package rotation assigns players to courts and teams, rotating whoever sat
// out so nobody is stuck on the sideline twice in a row.
//
// Every call is a pure function of its inputs: the caller threads State from
// one Generate call into the next and must apply results in call order.
//
// Players are picked in three tiers, each shuffled on its own:
//
//  1. Waiting: sat out the previous round, guaranteed a spot.
//  2. Sat out the round before that, read from History[len-2]. History[len-1]
//     is the Waiting tier again, so a player who sat out both rounds lands in
//     tier 1 and keeps no extra edge over a player who sat out once.
//  3. Everyone else.
//
// If the waiting tier alone fills every slot, only it competes for spots and
// the other tiers sit out. Overflowed waiting players get no extra priority in
// the following round.
//
// A State records the mode it was played in. Passing it to Generate with a
// different mode starts the rotation over.
package rotation

import (
	"fmt"
	"slices"
)

// Court is one court's matchup.
type Court struct {
	Number int      `json:"court"`
	Team1  []string `json:"team1"`
	Team2  []string `json:"team2"`
}

// Round records the outcome of one Generate call.
type Round struct {
	Number     int      `json:"number"`
	Playing    []string `json:"playing"`
	SittingOut []string `json:"sitting_out"`
	Courts     []Court  `json:"courts"`
}

// State is carried between rounds. Waiting always equals the SittingOut of the
// last round in History. Mode is empty for a fresh state.
type State struct {
	Mode    GameMode `json:"mode,omitempty"`
	Waiting []string `json:"waiting"`
	History []Round  `json:"history"`
}

// Reset returns the empty state.
func Reset() State {
	return State{
		Waiting: []string{},
		History: []Round{},
	}
}

func (s State) Empty() bool {
	return len(s.Waiting) == 0 && len(s.History) == 0
}

// playedIn reports whether s can seed a round of mode. States without a Mode
// are judged by the team size of their last round.
func (s State) playedIn(mode GameMode) bool {
	if s.Mode != "" {
		return s.Mode == mode
	}

	if n := len(s.History); n > 0 && len(s.History[n-1].Courts) > 0 {
		return len(s.History[n-1].Courts[0].Team1) == mode.TeamSize()
	}

	return true
}

// clone deep-copies r so history never shares backing arrays with a Round
// handed to a caller.
func (r Round) clone() Round {
	courts := make([]Court, len(r.Courts))
	for i, c := range r.Courts {
		courts[i] = Court{Number: c.Number, Team1: slices.Clone(c.Team1), Team2: slices.Clone(c.Team2)}
	}

	return Round{
		Number:     r.Number,
		Playing:    slices.Clone(r.Playing),
		SittingOut: slices.Clone(r.SittingOut),
		Courts:     courts,
	}
}

// Generate plays one round. players must already be trimmed and de-blanked
// (see ActivePlayers); duplicate names count as separate entries. A nil rng
// uses DefaultRNG. prior is never modified, and a prior played in another
// mode is treated as Reset. The returned Round shares no memory with the
// returned State.
func Generate(players []string, mode GameMode, courts int, prior State, rng RNG) (Round, State, error) {
	if !mode.Valid() {
		return Round{}, State{}, fmt.Errorf("%w: %q", ErrInvalidGameMode, string(mode))
	}

	perCourt := mode.PlayersPerCourt()
	if len(players) < perCourt {
		return Round{}, State{}, &InsufficientPlayersError{Required: perCourt, Have: len(players)}
	}

	maxCourts := MaxCourts(len(players), mode)
	if courts < 1 || courts > maxCourts {
		return Round{}, State{}, &InvalidCourtCountError{Courts: courts, Max: maxCourts}
	}

	if rng == nil {
		rng = DefaultRNG()
	}

	if !prior.playedIn(mode) {
		prior = Reset()
	}

	slots := courts * perCourt

	waiting, previous, rest := tiers(players, prior)

	Shuffle(waiting, rng)
	if len(waiting) < slots {
		Shuffle(previous, rng)
		Shuffle(rest, rng)
	}

	ordered := make([]string, 0, len(players))
	ordered = append(ordered, waiting...)
	ordered = append(ordered, previous...)
	ordered = append(ordered, rest...)

	round := Round{
		Number:     len(prior.History) + 1,
		Playing:    append(make([]string, 0, slots), ordered[:slots]...),
		SittingOut: append(make([]string, 0, len(ordered)-slots), ordered[slots:]...),
	}
	round.Courts = formCourts(round.Playing, mode, courts, rng)

	history := make([]Round, 0, len(prior.History)+1)
	history = append(history, prior.History...)
	history = append(history, round.clone())

	next := State{
		Mode:    mode,
		Waiting: slices.Clone(round.SittingOut),
		History: history,
	}

	return round, next, nil
}

// tiers splits players by priority. Membership is counted per occurrence, so a
// name listed twice in the roster but once in the waiting queue lands one entry
// in each tier.
func tiers(players []string, prior State) (waiting, previous, rest []string) {
	queued := occurrences(prior.Waiting)

	var earlier map[string]int
	if n := len(prior.History); n >= 2 {
		earlier = occurrences(prior.History[n-2].SittingOut)
	}

	waiting = make([]string, 0, len(players))
	previous = make([]string, 0, len(players))
	rest = make([]string, 0, len(players))

	for _, p := range players {
		switch {
		case queued[p] > 0:
			queued[p]--
			waiting = append(waiting, p)
		case earlier[p] > 0:
			earlier[p]--
			previous = append(previous, p)
		default:
			rest = append(rest, p)
		}
	}

	return waiting, previous, rest
}

func occurrences(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for _, n := range names {
		m[n]++
	}

	return m
}

// formCourts cuts playing into contiguous per-court chunks, shuffles each
// chunk, and splits it down the middle.
func formCourts(playing []string, mode GameMode, courts int, rng RNG) []Court {
	perCourt := mode.PlayersPerCourt()
	teamSize := mode.TeamSize()

	out := make([]Court, 0, courts)
	for c := range courts {
		chunk := slices.Clone(playing[c*perCourt : (c+1)*perCourt])
		Shuffle(chunk, rng)

		out = append(out, Court{
			Number: c + 1,
			Team1:  chunk[:teamSize:teamSize],
			Team2:  chunk[teamSize:],
		})
	}

	return out
}
