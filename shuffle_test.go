/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Seednode/beachteams/rotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shuffleOutput(t *testing.T, opts shuffleOptions, names ...string) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, runShuffle(&buf, opts, names))

	return buf.String()
}

func TestPrintRound(t *testing.T) {
	var buf bytes.Buffer
	printRound(&buf, rotation.Round{
		Number:     3,
		Playing:    []string{"A", "B", "C", "D"},
		SittingOut: []string{"E", "F"},
		Courts: []rotation.Court{
			{Number: 1, Team1: []string{"A", "B"}, Team2: []string{"C", "D"}},
		},
	})

	assert.Equal(t, "Round 3\n  Court 1: A & B vs C & D\n  Sitting out: E, F\n", buf.String())

	buf.Reset()
	printRound(&buf, rotation.Round{
		Number:     1,
		Playing:    []string{"A", "B", "C", "D"},
		SittingOut: []string{},
		Courts: []rotation.Court{
			{Number: 1, Team1: []string{"A", "B"}, Team2: []string{"C", "D"}},
		},
	})
	assert.NotContains(t, buf.String(), "Sitting out")
}

func TestShuffleSeeded(t *testing.T) {
	opts := shuffleOptions{mode: "2v2", rounds: 3, seed: 99}
	players := []string{"A", "B", "C", "D", "E", "F"}

	out := shuffleOutput(t, opts, players...)
	assert.Equal(t, out, shuffleOutput(t, opts, players...))

	rounds := strings.Split(strings.TrimSuffix(out, "\n"), "\n\n")
	require.Len(t, rounds, 3)
	for i, round := range rounds {
		lines := strings.Split(round, "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Round "+string(rune('1'+i)), lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "  Court 1: "))
		assert.True(t, strings.HasPrefix(lines[2], "  Sitting out: "))
	}
}

func TestShuffleFillsEveryCourtByDefault(t *testing.T) {
	out := shuffleOutput(t, shuffleOptions{mode: "2v2", rounds: 1, seed: 1}, roster(9)...)

	assert.Contains(t, out, "  Court 1: ")
	assert.Contains(t, out, "  Court 2: ")
	assert.NotContains(t, out, "  Court 3: ")
	assert.Contains(t, out, "  Sitting out: ")
}

func TestShuffleRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`mode: 3v3
courts: 1
players:
  - Alice
  - Bob
  - Carol
  - Dave
  - Erin
  - Frank
`), 0o644))

	out := shuffleOutput(t, shuffleOptions{mode: "2v2", rounds: 1, seed: 5, roster: path}, "Grace")
	assert.Equal(t, 4, strings.Count(out, " & "), "three per team")
	assert.Contains(t, out, "  Sitting out: ")

	out = shuffleOutput(t, shuffleOptions{mode: "2v2", modeSet: true, rounds: 1, seed: 5, roster: path}, "Grace")
	assert.Equal(t, 2, strings.Count(out, " & "), "flag beats roster")
	assert.Contains(t, out, "  Sitting out: ")
}

func TestShuffleErrors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("players: [unterminated"), 0o644))

	tests := []struct {
		name  string
		opts  shuffleOptions
		names []string
		err   string
	}{
		{name: "too few", opts: shuffleOptions{mode: "2v2", rounds: 1}, names: []string{"A", "B"}, err: "need at least 4 players for 2v2, got 2"},
		{name: "blank names", opts: shuffleOptions{mode: "2v2", rounds: 1}, names: []string{"A", " ", "B", "", "C"}, err: "need at least 4 players for 2v2, got 3"},
		{name: "too many courts", opts: shuffleOptions{mode: "2v2", courts: 3, rounds: 1}, names: roster(8), err: "8 players can only fill 2 2v2 court(s), not 3"},
		{name: "negative courts", opts: shuffleOptions{mode: "2v2", courts: -1, rounds: 1}, names: roster(8), err: "invalid --courts"},
		{name: "no rounds", opts: shuffleOptions{mode: "2v2", rounds: 0}, names: roster(8), err: "invalid --rounds"},
		{name: "bad mode", opts: shuffleOptions{mode: "5v5", rounds: 1}, names: roster(8), err: "invalid game mode"},
		{name: "missing roster", opts: shuffleOptions{mode: "2v2", rounds: 1, roster: filepath.Join(t.TempDir(), "nope.yaml")}, err: "no such file"},
		{name: "bad roster", opts: shuffleOptions{mode: "2v2", rounds: 1, roster: bad}, err: "parse roster"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runShuffle(&bytes.Buffer{}, tt.opts, tt.names)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestShuffleCommand(t *testing.T) {
	cmd := newCmd(testConfig())

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"shuffle", "--seed", "11", "-m", "2v2", "-r", "2", "A", "B", "C", "D", "E"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Round 1\n")
	assert.Contains(t, buf.String(), "Round 2\n")
}
