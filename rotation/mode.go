/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rotation

import (
	"fmt"
	"strings"
)

// GameMode selects how many players stand on each side of the net.
type GameMode string

const (
	Mode2v2 GameMode = "2v2"
	Mode3v3 GameMode = "3v3"
	Mode4v4 GameMode = "4v4"
)

// Modes lists every supported game mode, smallest first.
var Modes = []GameMode{Mode2v2, Mode3v3, Mode4v4}

// ParseGameMode accepts "2v2", "3v3" or "4v4", ignoring case and surrounding space.
func ParseGameMode(s string) (GameMode, error) {
	m := GameMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGameMode, s)
	}

	return m, nil
}

func (m GameMode) Valid() bool {
	switch m {
	case Mode2v2, Mode3v3, Mode4v4:
		return true
	}

	return false
}

// TeamSize returns the number of players per team, or 0 for an unknown mode.
func (m GameMode) TeamSize() int {
	switch m {
	case Mode2v2:
		return 2
	case Mode3v3:
		return 3
	case Mode4v4:
		return 4
	}

	return 0
}

// PlayersPerCourt is two full teams.
func (m GameMode) PlayersPerCourt() int {
	return 2 * m.TeamSize()
}

func (m GameMode) String() string {
	return string(m)
}

// MaxCourts is the largest court count the active players can fill.
func MaxCourts(active int, mode GameMode) int {
	per := mode.PlayersPerCourt()
	if per == 0 || active < 0 {
		return 0
	}

	return active / per
}

// ClampCourts keeps a requested court count within [1, MaxCourts]. When not
// even one court can be filled it still returns 1, so the form always has a
// sensible value to show.
func ClampCourts(courts, active int, mode GameMode) int {
	maxCourts := MaxCourts(active, mode)
	if courts > maxCourts {
		courts = maxCourts
	}
	if courts < 1 {
		courts = 1
	}

	return courts
}

// ActivePlayers trims every entry and drops the blank ones, keeping input order.
func ActivePlayers(raw []string) []string {
	active := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		active = append(active, name)
	}

	return active
}
