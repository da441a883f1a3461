/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Seednode/beachteams/rotation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// rosterFile is the YAML accepted by --roster:
//
//	mode: 3v3
//	courts: 2
//	players:
//	  - Alice
//	  - Bob
type rosterFile struct {
	Mode    string   `yaml:"mode"`
	Courts  int      `yaml:"courts"`
	Players []string `yaml:"players"`
}

type shuffleOptions struct {
	mode   string
	courts int
	rounds int
	seed   uint64
	roster string
	xlsx   string

	modeSet   bool
	courtsSet bool
}

func loadRoster(path string) (rosterFile, error) {
	var rf rosterFile

	data, err := os.ReadFile(path)
	if err != nil {
		return rf, err
	}

	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rf, fmt.Errorf("parse roster %s: %w", path, err)
	}

	return rf, nil
}

// runShuffle plays opts.rounds rounds back to back, threading rotation state
// between them, and prints each one.
func runShuffle(w io.Writer, opts shuffleOptions, names []string) error {
	var rf rosterFile
	if opts.roster != "" {
		var err error
		rf, err = loadRoster(opts.roster)
		if err != nil {
			return err
		}
	}

	modeName := opts.mode
	if !opts.modeSet && rf.Mode != "" {
		modeName = rf.Mode
	}
	mode, err := rotation.ParseGameMode(modeName)
	if err != nil {
		return err
	}

	courts := opts.courts
	if !opts.courtsSet && rf.Courts != 0 {
		courts = rf.Courts
	}

	if opts.rounds < 1 {
		return fmt.Errorf("invalid --rounds (must be at least 1): %d", opts.rounds)
	}

	players := rotation.ActivePlayers(append(rf.Players, names...))

	maxCourts := rotation.MaxCourts(len(players), mode)
	switch {
	case courts < 0:
		return fmt.Errorf("invalid --courts (must be 0 or more): %d", courts)
	case courts == 0:
		courts = rotation.ClampCourts(maxCourts, len(players), mode)
	case courts > maxCourts && maxCourts > 0:
		return fmt.Errorf("%d players can only fill %d %s court(s), not %d", len(players), maxCourts, mode, courts)
	}

	rng := rotation.DefaultRNG()
	if opts.seed != 0 {
		rng = rotation.NewSeededRNG(opts.seed)
	}

	rounds := make([]rotation.Round, 0, opts.rounds)

	state := rotation.Reset()
	for i := range opts.rounds {
		var round rotation.Round

		round, state, err = rotation.Generate(players, mode, courts, state, rng)
		if err != nil {
			var short *rotation.InsufficientPlayersError
			if errors.As(err, &short) {
				return fmt.Errorf("need at least %d players for %s, got %d", short.Required, mode, short.Have)
			}
			return err
		}

		rounds = append(rounds, round)

		if i > 0 {
			fmt.Fprintln(w)
		}
		printRound(w, round)
	}

	if opts.xlsx != "" {
		if err := writeXLSX(opts.xlsx, mode, rounds); err != nil {
			return err
		}
	}

	return nil
}

func printRound(w io.Writer, round rotation.Round) {
	fmt.Fprintf(w, "Round %d\n", round.Number)

	for _, court := range round.Courts {
		fmt.Fprintf(w, "  Court %d: %s vs %s\n",
			court.Number,
			strings.Join(court.Team1, " & "),
			strings.Join(court.Team2, " & "),
		)
	}

	if len(round.SittingOut) > 0 {
		fmt.Fprintf(w, "  Sitting out: %s\n", strings.Join(round.SittingOut, ", "))
	}
}

func newShuffleCmd() *cobra.Command {
	opts := shuffleOptions{}

	cmd := &cobra.Command{
		Use:   "shuffle [player...]",
		Short: "Generate rounds from the command line instead of serving the web form.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			opts.modeSet = fs.Changed("mode")
			opts.courtsSet = fs.Changed("courts")

			return runShuffle(cmd.OutOrStdout(), opts, args)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&opts.mode, "mode", "m", string(rotation.Mode2v2), "game mode: 2v2, 3v3 or 4v4 (env: BEACHTEAMS_MODE)")
	fs.IntVarP(&opts.courts, "courts", "c", 0, "courts to fill, 0 for as many as possible (env: BEACHTEAMS_COURTS)")
	fs.IntVarP(&opts.rounds, "rounds", "r", 1, "consecutive rounds to generate (env: BEACHTEAMS_ROUNDS)")
	fs.Uint64Var(&opts.seed, "seed", 0, "seed for reproducible output, 0 for random (env: BEACHTEAMS_SEED)")
	fs.StringVar(&opts.roster, "roster", "", "YAML file with players and optional mode and courts (env: BEACHTEAMS_ROSTER)")
	fs.StringVar(&opts.xlsx, "xlsx", "", "also write the rounds to this spreadsheet (env: BEACHTEAMS_XLSX)")

	bindEnv(newViper(), fs)

	return cmd
}
