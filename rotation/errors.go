/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rotation

import (
	"errors"
	"fmt"
)

var ErrInvalidGameMode = errors.New("invalid game mode (must be one of 2v2, 3v3, 4v4)")

// InsufficientPlayersError is returned by Generate when the roster cannot fill
// a single court. Callers should block the action and show Required.
type InsufficientPlayersError struct {
	Required int
	Have     int
}

func (e *InsufficientPlayersError) Error() string {
	return fmt.Sprintf("need at least %d players to form teams, have %d", e.Required, e.Have)
}

// InvalidCourtCountError means the caller skipped court clamping.
type InvalidCourtCountError struct {
	Courts int
	Max    int
}

func (e *InvalidCourtCountError) Error() string {
	return fmt.Sprintf("invalid court count %d (must be between 1-%d inclusive)", e.Courts, e.Max)
}
