package game

import (
	"time"

	"github.com/xplodegame/backend/internal/board"
	"github.com/xplodegame/backend/internal/player"
)

// State is the discriminating tag of a session.
type State string

const (
	StateWaiting  State = "WAITING"
	StateRunning  State = "RUNNING"
	StateFinished State = "FINISHED"
	StateRematch  State = "REMATCH"
	StateAborted  State = "ABORTED"
)

// Session is one game's full authoritative state, held only by the
// instance that created it. The State tag selects which fields are
// meaningful; transitions are switch-on-tag plus guard, never subtyping.
type Session struct {
	GameID     string          `json:"game_id"`
	Stake      float64         `json:"stake"`
	Currency   string          `json:"currency"`
	State      State           `json:"state"`
	Board      *board.Board    `json:"board,omitempty"`
	MinPlayers int             `json:"min_players,omitempty"`
	Players    []player.Player `json:"players,omitempty"`
	TurnIdx    int             `json:"turn_idx"`
	LoserIdx   int             `json:"loser_idx"`
	Locks      [][2]int        `json:"locks,omitempty"`
	Accepted   []bool          `json:"accepted,omitempty"`

	settled bool      // settlement dispatched; flipped under the registry write lock
	endedAt time.Time // set on FINISHED/ABORTED, drives the reaper
}

// Creator returns the player that opened the session. Only meaningful in
// WAITING, where the creator is always the first roster entry.
func (s *Session) Creator() *player.Player {
	if len(s.Players) == 0 {
		return nil
	}
	return &s.Players[0]
}

// PlayerIndex returns the roster index of the given player id, or -1.
func (s *Session) PlayerIndex(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// HasPlayer reports whether the player is on the roster.
func (s *Session) HasPlayer(playerID string) bool {
	return s.PlayerIndex(playerID) >= 0
}

// startRunning freezes the roster and enters RUNNING with turn 0 and no
// staged locks.
func (s *Session) startRunning() {
	s.State = StateRunning
	s.TurnIdx = 0
	s.LoserIdx = -1
	s.Locks = nil
	s.Accepted = nil
}

// finish enters FINISHED with the given loser. Locks are cleared: FINISHED
// is never mid-turn.
func (s *Session) finish(loserIdx int) {
	s.State = StateFinished
	s.LoserIdx = loserIdx
	s.Locks = nil
	s.endedAt = time.Now()
}

// abort enters ABORTED and drops all per-turn staging.
func (s *Session) abort() {
	s.State = StateAborted
	s.Locks = nil
	s.Accepted = nil
	s.endedAt = time.Now()
}

// enterRematch swaps in a fresh board of identical shape and resets the
// acceptance bitvector with only the requester's vote set.
func (s *Session) enterRematch(fresh *board.Board, requesterIdx int) {
	s.State = StateRematch
	s.Board = fresh
	s.Locks = nil
	s.Accepted = make([]bool, len(s.Players))
	s.Accepted[requesterIdx] = true
}

// rematchAccepted reports whether every participant voted yes.
func (s *Session) rematchAccepted() bool {
	for _, ok := range s.Accepted {
		if !ok {
			return false
		}
	}
	return len(s.Accepted) > 0
}
