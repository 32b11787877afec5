package game

import "sync"

// Registry is the per-instance index of owned sessions, the
// active-player binding, and the per-session fan-out channels. Sessions
// are guarded by a reader-writer lock; the player index and the fan-out
// table each carry their own lock so no directory or settlement round
// trip ever happens under any of them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	pmu           sync.Mutex
	activePlayers map[string]string // player_id -> game_id

	bmu        sync.Mutex
	broadcasts map[string]*Fanout
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[string]*Session),
		activePlayers: make(map[string]string),
		broadcasts:    make(map[string]*Fanout),
	}
}

// Get returns the locally owned session, or nil.
func (r *Registry) Get(gameID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[gameID]
}

// put stores a session. Caller must not hold the sessions lock.
func (r *Registry) put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.GameID] = s
}

// delete removes a session and its fan-out.
func (r *Registry) delete(gameID string) {
	r.mu.Lock()
	delete(r.sessions, gameID)
	r.mu.Unlock()

	r.bmu.Lock()
	delete(r.broadcasts, gameID)
	r.bmu.Unlock()
}

// GameFor returns the game the player is currently bound to.
func (r *Registry) GameFor(playerID string) (string, bool) {
	r.pmu.Lock()
	defer r.pmu.Unlock()
	gameID, ok := r.activePlayers[playerID]
	return gameID, ok
}

// BindPlayer associates a player with a game, enforcing one game per
// player on this instance. Binding to the same game again is a no-op.
func (r *Registry) BindPlayer(playerID, gameID string) error {
	r.pmu.Lock()
	defer r.pmu.Unlock()
	if current, ok := r.activePlayers[playerID]; ok && current != gameID {
		return ErrAlreadyInGame
	}
	r.activePlayers[playerID] = gameID
	return nil
}

// RebindPlayer sets the binding unconditionally. Used by the ping path
// where a reconnecting client re-asserts an association it already owns.
func (r *Registry) RebindPlayer(playerID, gameID string) {
	r.pmu.Lock()
	defer r.pmu.Unlock()
	r.activePlayers[playerID] = gameID
}

// UnbindPlayer removes the player's binding.
func (r *Registry) UnbindPlayer(playerID string) {
	r.pmu.Lock()
	defer r.pmu.Unlock()
	delete(r.activePlayers, playerID)
}

// Fanout returns the session's broadcast channel, creating it on first
// use.
func (r *Registry) Fanout(gameID string) *Fanout {
	r.bmu.Lock()
	defer r.bmu.Unlock()
	f, ok := r.broadcasts[gameID]
	if !ok {
		f = newFanout()
		r.broadcasts[gameID] = f
	}
	return f
}

// Unsubscribe detaches a sink from a game's fan-out if one exists.
func (r *Registry) Unsubscribe(gameID, key string) {
	r.bmu.Lock()
	f, ok := r.broadcasts[gameID]
	r.bmu.Unlock()
	if ok {
		f.Unsubscribe(key)
	}
}
