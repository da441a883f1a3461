/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"

	"github.com/Seednode/beachteams/rotation"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Rounds"

var exportHeader = []any{"Round", "Court", "Team 1", "Team 2", "Sitting out"}

// writeXLSX saves rounds as one sheet with a row per court, so the schedule
// can be printed and taken to the beach.
func writeXLSX(path string, mode rotation.GameMode, rounds []rotation.Round) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), exportSheet); err != nil {
		return err
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       fmt.Sprintf("Beach teams (%s)", mode),
		Creator:     "beachteams v" + releaseVersion,
		Description: fmt.Sprintf("%d round(s) of %s", len(rounds), mode),
	}); err != nil {
		return err
	}

	row := 1
	if err := setRow(f, row, exportHeader); err != nil {
		return err
	}

	for _, round := range rounds {
		sitting := strings.Join(round.SittingOut, ", ")

		for i, court := range round.Courts {
			row++

			cells := []any{
				round.Number,
				court.Number,
				strings.Join(court.Team1, ", "),
				strings.Join(court.Team2, ", "),
			}
			if i == 0 && sitting != "" {
				cells = append(cells, sitting)
			}

			if err := setRow(f, row, cells); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if err := f.SetColWidth(exportSheet, "C", "E", 32); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	return nil
}

func setRow(f *excelize.File, row int, cells []any) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	return f.SetSheetRow(exportSheet, axis, &cells)
}
