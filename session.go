// Beach Teams sessions
//
// Each browser gets its own in-memory session, keyed by a random cookie. The
// form talks to it over a websocket at /ws:
// - The browser sends actions (set_players, set_mode, set_courts, generate, reset)
// - The session applies them one at a time on its own goroutine, so rounds are
//   generated strictly in the order they were requested
// - After every change the full form state is sent back to each open tab
// - Errors (too few players, unknown mode) go only to the tab that caused them
// - Changing the game mode or pressing reset clears the rotation, never the roster
// - Sessions are forgotten after a configurable idle timeout

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Seednode/beachteams/rotation"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"
)

const (
	sessionCookieName = "beachteams_id"
	maxRoster         = 256
)

var errRosterTooLarge = fmt.Errorf("too many players (maximum %d)", maxRoster)

// Messages coming from clients
type ClientMessage struct {
	Type    string   `json:"type"`              // "set_players", "set_mode", "set_courts", "generate", "reset"
	Players []string `json:"players,omitempty"` // set_players, entries as typed
	Mode    string   `json:"mode,omitempty"`    // set_mode
	Courts  int      `json:"courts,omitempty"`  // set_courts
}

// StateMessage carries everything the form needs to re-render.
type StateMessage struct {
	Type       string          `json:"type"` // "state"
	Players    []string        `json:"players"`
	Active     int             `json:"active"`
	Mode       string          `json:"mode"`
	Modes      []string        `json:"modes"`
	Courts     int             `json:"courts"`
	MaxCourts  int             `json:"max_courts"`
	MinPlayers int             `json:"min_players"`
	Round      *rotation.Round `json:"round,omitempty"`
	Waiting    []string        `json:"waiting"`
	Rounds     int             `json:"rounds"`
}

// ErrorMessage is sent only to the client whose action failed.
type ErrorMessage struct {
	Type     string `json:"type"` // "error"
	Message  string `json:"message"`
	Required int    `json:"required,omitempty"`
}

type Client struct {
	conn    *websocket.Conn
	send    chan any
	limiter *rate.Limiter
}

type actionRequest struct {
	client *Client
	msg    ClientMessage
}

type Session struct {
	id      string
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	actions  chan actionRequest
	done     chan struct{}

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time

	players []string
	mode    rotation.GameMode
	courts  int
	state   rotation.State
	current *rotation.Round
	rng     rotation.RNG

	metrics *Metrics
}

func newSession(id string, mode rotation.GameMode, rng rotation.RNG) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan actionRequest),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
		players:    []string{},
		mode:       mode,
		courts:     1,
		state:      rotation.Reset(),
		rng:        rng,
	}
}

func (s *Session) run(cfg *Config) {
	for {
		select {
		case c := <-s.register:
			s.addClient(c)

		case c := <-s.unreg:
			s.mu.Lock()
			s.lastActive = time.Now()
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
			}
			s.mu.Unlock()

		case ar := <-s.actions:
			s.handleAction(cfg, ar)

		case <-s.done:
			return
		}
	}
}

// addClient registers c and sends it the current state. A client arriving
// after closeAll has its send channel closed so its writer exits.
func (s *Session) addClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		close(c.send)
		return
	default:
	}

	s.lastActive = time.Now()
	s.clients[c] = true
	s.deliverLocked(c, s.snapshotLocked())
}

func (s *Session) handleAction(cfg *Config, ar actionRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	if err := s.applyLocked(cfg, ar.msg); err != nil {
		s.metrics.reject(rejectReason(err))

		if ar.client != nil {
			s.deliverLocked(ar.client, newErrorMessage(err))
		}
		return
	}

	s.broadcastLocked()
}

// applyLocked changes session state for one client action. The court count is
// clamped here, so Generate only ever sees a valid one.
func (s *Session) applyLocked(cfg *Config, msg ClientMessage) error {
	switch msg.Type {
	case "set_players":
		if len(msg.Players) > maxRoster {
			return errRosterTooLarge
		}
		s.players = slices.Clone(msg.Players)
		if s.players == nil {
			s.players = []string{}
		}
		s.clampLocked()

	case "set_mode":
		mode, err := rotation.ParseGameMode(msg.Mode)
		if err != nil {
			return err
		}
		if mode != s.mode {
			s.mode = mode
			s.resetLocked()
			logf(cfg, "SESSION: %s switched to %s, rotation cleared", s.tag(), mode)
		}
		s.clampLocked()

	case "set_courts":
		s.courts = msg.Courts
		s.clampLocked()

	case "generate":
		active := rotation.ActivePlayers(s.players)

		round, next, err := rotation.Generate(active, s.mode, s.courts, s.state, s.rng)
		if err != nil {
			var invalid *rotation.InvalidCourtCountError
			if errors.As(err, &invalid) {
				bugf("session %s generated with unclamped courts: %v", s.tag(), err)
			}
			return err
		}

		s.state = next
		s.current = &round

		s.metrics.round("session")

		logf(cfg, "ROUND: Session %s round %d, %d playing on %d court(s), %d sitting out",
			s.tag(), round.Number, len(round.Playing), len(round.Courts), len(round.SittingOut))

	case "reset":
		s.resetLocked()

	default:
		return fmt.Errorf("unknown action %q", msg.Type)
	}

	return nil
}

// tag is the log-friendly prefix of the session id.
func (s *Session) tag() string {
	if len(s.id) > 8 {
		return s.id[:8]
	}
	return s.id
}

func (s *Session) resetLocked() {
	s.state = rotation.Reset()
	s.current = nil
}

func (s *Session) clampLocked() {
	s.courts = rotation.ClampCourts(s.courts, len(rotation.ActivePlayers(s.players)), s.mode)
}

func (s *Session) snapshotLocked() StateMessage {
	active := len(rotation.ActivePlayers(s.players))

	modes := make([]string, 0, len(rotation.Modes))
	for _, m := range rotation.Modes {
		modes = append(modes, m.String())
	}

	return StateMessage{
		Type:       "state",
		Players:    slices.Clone(s.players),
		Active:     active,
		Mode:       s.mode.String(),
		Modes:      modes,
		Courts:     s.courts,
		MaxCourts:  rotation.MaxCourts(active, s.mode),
		MinPlayers: s.mode.PlayersPerCourt(),
		Round:      s.current,
		Waiting:    slices.Clone(s.state.Waiting),
		Rounds:     len(s.state.History),
	}
}

func newErrorMessage(err error) ErrorMessage {
	msg := ErrorMessage{
		Type:    "error",
		Message: err.Error(),
	}

	var short *rotation.InsufficientPlayersError
	var invalid *rotation.InvalidCourtCountError
	switch {
	case errors.As(err, &short):
		msg.Message = fmt.Sprintf("Need at least %d players to form teams!", short.Required)
		msg.Required = short.Required
	case errors.As(err, &invalid):
		msg.Message = "Unable to fill that many courts. Please adjust the court count and try again."
	}

	return msg
}

// deliverLocked drops clients whose send buffer is full.
func (s *Session) deliverLocked(c *Client, msg any) {
	if !s.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Session) broadcastLocked() {
	msg := s.snapshotLocked()
	for c := range s.clients {
		s.deliverLocked(c, msg)
	}
}

// join hands a new client to the session goroutine. It reports false if the
// session has already been closed.
func (s *Session) join(c *Client) bool {
	select {
	case s.register <- c:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastActive
}

// closeAll disconnects all clients and stops the session goroutine.
func (s *Session) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}

	for c := range s.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(s.clients, c)
	}
}

// SessionManager holds one session per browser cookie.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg         *Config
	metrics     *Metrics
	idleTimeout time.Duration
	newRNG      func() rotation.RNG
	stop        chan struct{}
	stopOnce    sync.Once
}

func newSessionManager(cfg *Config) *SessionManager {
	sm := &SessionManager{
		sessions:    make(map[string]*Session),
		cfg:         cfg,
		idleTimeout: cfg.sessionTimeout,
		newRNG:      rotation.DefaultRNG,
		stop:        make(chan struct{}),
	}
	sm.metrics = newMetrics(sm.count)

	if sm.idleTimeout > 0 {
		go sm.reaperLoop()
	}
	return sm
}

func (sm *SessionManager) get(id string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, ok := sm.sessions[id]; ok {
		return s
	}

	s := newSession(id, sm.cfg.defaultMode, sm.newRNG())
	s.metrics = sm.metrics
	sm.sessions[id] = s
	go s.run(sm.cfg)

	logf(sm.cfg, "SESSION: Created %s", s.tag())

	return s
}

func (sm *SessionManager) count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return len(sm.sessions)
}

// reap forgets sessions idle since before cutoff.
func (sm *SessionManager) reap(cutoff time.Time) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	reaped := 0
	for id, s := range sm.sessions {
		if s.idleSince().Before(cutoff) {
			delete(sm.sessions, id)
			go s.closeAll()
			reaped++
		}
	}

	return reaped
}

func (sm *SessionManager) reaperLoop() {
	ticker := time.NewTicker(max(sm.idleTimeout/2, minSessionTimeout/2))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := sm.reap(time.Now().Add(-sm.idleTimeout)); n > 0 {
				logf(sm.cfg, "SESSION: Reaped %d idle session(s)", n)
			}
		case <-sm.stop:
			return
		}
	}
}

func (sm *SessionManager) close() {
	sm.stopOnce.Do(func() { close(sm.stop) })

	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, s := range sm.sessions {
		delete(sm.sessions, id)
		s.closeAll()
	}
}

// Session ids are random UUIDs written as 32 hex digits, so they fit a
// cookie without quoting.
func newSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(id[:]), nil
}

func validSessionID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func getOrSetSessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && validSessionID(c.Value) {
		return c.Value
	}

	id, err := newSessionID()
	if err != nil {
		bugf("unable to generate session id: %v", err)
		return ""
	}

	http.SetCookie(w, sessionCookie(id))

	return id
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func serveWS(cfg *Config, sm *SessionManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		header := http.Header{}

		var id string
		if c, err := r.Cookie(sessionCookieName); err == nil && validSessionID(c.Value) {
			id = c.Value
		} else {
			id, err = newSessionID()
			if err != nil {
				http.Error(w, "unable to assign session id", http.StatusInternalServerError)
				return
			}
			header.Add("Set-Cookie", sessionCookie(id).String())
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			logf(cfg, "ERROR: websocket upgrade from %s: %v", realIP(r), err)
			return
		}

		// Hijacked connections keep the server's read and write deadlines.
		_ = conn.NetConn().SetDeadline(time.Time{})

		client := &Client{
			conn:    conn,
			send:    make(chan any, 8),
			limiter: newActionLimiter(),
		}

		s := sm.get(id)
		if !s.join(client) {
			_ = conn.Close()
			return
		}

		logf(cfg, "SERVE: Websocket for session %s to %s", s.tag(), realIP(r))

		sm.metrics.connected(1)
		defer sm.metrics.connected(-1)

		go client.writePump()
		client.readPump(cfg, s)
	}
}

func (c *Client) readPump(cfg *Config, s *Session) {
	defer func() {
		select {
		case s.unreg <- c:
		case <-s.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(64 << 10)

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if !c.limiter.Allow() {
			s.metrics.reject("rate_limited")
			logf(cfg, "SESSION: %s dropped %q, client is sending too fast", s.tag(), msg.Type)

			continue
		}

		select {
		case s.actions <- actionRequest{client: c, msg: msg}:
		case <-s.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
