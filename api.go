/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Seednode/beachteams/rotation"
	"github.com/julienschmidt/httprouter"
)

const maxRequestBody = 1 << 20

// generateRequest mirrors rotation.Generate. State is the value returned by the
// previous call, or omitted for the first round. A non-zero Seed makes the
// result reproducible.
type generateRequest struct {
	Players []string        `json:"players"`
	Mode    string          `json:"mode"`
	Courts  int             `json:"courts"`
	State   *rotation.State `json:"state,omitempty"`
	Seed    uint64          `json:"seed,omitempty"`
}

type generateResponse struct {
	Round rotation.Round `json:"round"`
	State rotation.State `json:"state"`
}

type apiError struct {
	Error    string `json:"error"`
	Required int    `json:"required,omitempty"`
	Max      *int   `json:"max,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}

// serveGenerate exposes one engine call without any server-side state; the
// client threads State between requests itself.
func serveGenerate(cfg *Config, m *Metrics, limiter *ipLimiter, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		securityHeaders(cfg, w)

		if !limiter.allow(limiterKey(cfg, r)) {
			m.reject("rate_limited")

			w.Header().Set("Retry-After", "1")
			if err := writeJSON(w, http.StatusTooManyRequests, apiError{Error: "too many requests, slow down"}); err != nil {
				errs <- err
			}
			return
		}

		var req generateRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			m.reject("bad_request")

			if err := writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body: " + err.Error()}); err != nil {
				errs <- err
			}
			return
		}

		mode := cfg.defaultMode
		if req.Mode != "" {
			parsed, err := rotation.ParseGameMode(req.Mode)
			if err != nil {
				m.reject(rejectReason(err))

				if err := writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()}); err != nil {
					errs <- err
				}
				return
			}
			mode = parsed
		}

		prior := rotation.Reset()
		if req.State != nil {
			prior = *req.State
		}

		rng := rotation.DefaultRNG()
		if req.Seed != 0 {
			rng = rotation.NewSeededRNG(req.Seed)
		}

		players := rotation.ActivePlayers(req.Players)

		round, next, err := rotation.Generate(players, mode, req.Courts, prior, rng)
		if err != nil {
			m.reject(rejectReason(err))

			status, body := http.StatusInternalServerError, apiError{Error: err.Error()}

			var short *rotation.InsufficientPlayersError
			var invalid *rotation.InvalidCourtCountError
			switch {
			case errors.As(err, &short):
				status, body.Required = http.StatusUnprocessableEntity, short.Required
			case errors.As(err, &invalid):
				status, body.Max = http.StatusUnprocessableEntity, &invalid.Max
			case errors.Is(err, rotation.ErrInvalidGameMode):
				status = http.StatusBadRequest
			}

			if err := writeJSON(w, status, body); err != nil {
				errs <- err
			}
			return
		}

		m.round("api")

		if err := writeJSON(w, http.StatusOK, generateResponse{Round: round, State: next}); err != nil {
			errs <- err
			return
		}

		logf(cfg, "ROUND: API round %d (%d players, %s, %d court(s)) for %s in %s",
			round.Number,
			len(players),
			mode,
			req.Courts,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
