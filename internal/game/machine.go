package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"

	"github.com/xplodegame/backend/internal/board"
	"github.com/xplodegame/backend/internal/discovery"
	"github.com/xplodegame/backend/internal/player"
	"github.com/xplodegame/backend/internal/protocol"
)

// Directory is the subset of the discovery service the machine drives.
type Directory interface {
	Register(ctx context.Context, ad discovery.Advertisement) error
	FindByAttrs(ctx context.Context, stake float64, minPlayers, gridSize int) (*discovery.Advertisement, error)
	FindByID(ctx context.Context, gameID string) (*discovery.Advertisement, error)
	UpdatePlayerCount(ctx context.Context, gameID string, count int) error
	Remove(ctx context.Context, gameID string) error
}

// Settler persists balance changes when a game finishes. Invoked
// asynchronously, at most once per session; failures are logged only.
type Settler interface {
	UpdatePlayerBalances(ctx context.Context, playerIDs []string, loserIdx int, stake, winningShare float64, currency string) error
}

// Notifier receives game-result side effects (may be nil).
type Notifier interface {
	GameFinished(ctx context.Context, gameID, loserName string, stake float64, currency string)
}

// Machine applies inbound player actions to sessions owned by this
// instance and broadcasts every accepted transition to the session's
// subscribers. All session mutations happen under the registry's write
// lock; directory and settlement round trips never do.
type Machine struct {
	registry   *Registry
	directory  Directory
	settler    Settler
	notifier   Notifier
	instanceID string
	currency   string
}

func NewMachine(registry *Registry, directory Directory, settler Settler, notifier Notifier, instanceID, defaultCurrency string) *Machine {
	return &Machine{
		registry:   registry,
		directory:  directory,
		settler:    settler,
		notifier:   notifier,
		instanceID: instanceID,
		currency:   defaultCurrency,
	}
}

// Registry exposes the machine's session index to the connection layer.
func (m *Machine) Registry() *Registry {
	return m.registry
}

// InstanceID returns this coordinator's cluster identity.
func (m *Machine) InstanceID() string {
	return m.instanceID
}

func generateGameID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// sendError delivers a single error frame to the requester only.
func sendError(sub Subscriber, msg string) {
	sub.TrySend(protocol.MustEncode(protocol.TypeError, protocol.ErrorData{Message: msg}))
}

// broadcast publishes exactly one GameUpdate for an accepted transition.
// Caller holds the registry write lock; fan-out sends never block.
func (m *Machine) broadcast(s *Session) {
	data, err := protocol.Encode(protocol.TypeGameUpdate, s)
	if err != nil {
		log.Printf("[GAME] Failed to marshal update for game %s: %v", s.GameID, err)
		return
	}
	m.registry.Fanout(s.GameID).Publish(data)
}

// HandlePlay is the matchmaking entry: join a compatible advertised game
// on this instance, redirect to the owning instance, or create a new
// WAITING session. Returns the game id the sender ended up in ("" when
// redirected or rejected).
func (m *Machine) HandlePlay(ctx context.Context, sub Subscriber, data protocol.PlayData) string {
	if _, bound := m.registry.GameFor(data.PlayerID); bound {
		sendError(sub, ErrAlreadyInGame.Error())
		return ""
	}

	ad, err := m.directory.FindByAttrs(ctx, data.Stake, data.MinPlayers, data.Grid)
	if err != nil {
		log.Printf("[GAME] Directory lookup failed, creating locally: %v", err)
	}

	if ad != nil && ad.ServerID != m.instanceID {
		sub.TrySend(protocol.MustEncode(protocol.TypeRedirectToServer, protocol.RedirectData{
			GameID:     ad.GameID,
			InstanceID: ad.ServerID,
		}))
		return ""
	}

	if ad != nil {
		if gameID, ok := m.joinLocal(ctx, sub, ad.GameID, data.PlayerID, data.Name); ok {
			return gameID
		}
		// The advertised session vanished or filled between the directory
		// read and our lock; fall through and open a fresh one.
	}

	return m.createSession(ctx, sub, data)
}

// joinLocal appends the player to a locally owned WAITING session. Returns
// ok=false when the session cannot take the player anymore.
func (m *Machine) joinLocal(ctx context.Context, sub Subscriber, gameID, playerID, name string) (string, bool) {
	m.registry.mu.Lock()
	s := m.registry.sessions[gameID]
	if s == nil || s.State != StateWaiting || len(s.Players) >= s.MinPlayers {
		m.registry.mu.Unlock()
		return "", false
	}

	if err := m.registry.BindPlayer(playerID, gameID); err != nil {
		m.registry.mu.Unlock()
		sendError(sub, err.Error())
		return "", true
	}

	s.Players = append(s.Players, player.New(playerID, name))
	m.registry.Fanout(gameID).Subscribe(sub)

	count := len(s.Players)
	toRunning := count == s.MinPlayers
	if toRunning {
		s.startRunning()
	}
	m.broadcast(s)
	m.registry.mu.Unlock()

	if toRunning {
		if err := m.directory.Remove(ctx, gameID); err != nil {
			log.Printf("[GAME] Failed to unadvertise running game %s: %v", gameID, err)
		}
	} else {
		if err := m.directory.UpdatePlayerCount(ctx, gameID, count); err != nil {
			log.Printf("[GAME] Failed to refresh player count for %s: %v", gameID, err)
		}
	}
	return gameID, true
}

// createSession opens a new WAITING session, advertises it, and stores it
// locally. The directory write happens before the session becomes local
// state: a game nobody can discover is not worth keeping.
func (m *Machine) createSession(ctx context.Context, sub Subscriber, data protocol.PlayData) string {
	b, err := board.New(data.Grid, data.Bombs)
	if err != nil {
		sendError(sub, err.Error())
		return ""
	}

	currency := data.Currency
	if currency == "" {
		currency = m.currency
	}

	s := &Session{
		GameID:     generateGameID(),
		Stake:      data.Stake,
		Currency:   currency,
		State:      StateWaiting,
		Board:      b,
		MinPlayers: data.MinPlayers,
		Players:    []player.Player{player.New(data.PlayerID, data.Name)},
		LoserIdx:   -1,
	}

	if err := m.directory.Register(ctx, discovery.Advertisement{
		GameID:         s.GameID,
		ServerID:       m.instanceID,
		Stake:          s.Stake,
		MinPlayers:     s.MinPlayers,
		GridSize:       data.Grid,
		CurrentPlayers: 1,
	}); err != nil {
		log.Printf("[GAME] Failed to advertise new game %s: %v", s.GameID, err)
		sendError(sub, ErrTransientInternal.Error())
		return ""
	}

	m.registry.mu.Lock()
	m.registry.sessions[s.GameID] = s
	if err := m.registry.BindPlayer(data.PlayerID, s.GameID); err != nil {
		// A concurrent Play for the same identity won the race.
		delete(m.registry.sessions, s.GameID)
		m.registry.mu.Unlock()
		m.directory.Remove(ctx, s.GameID)
		sendError(sub, err.Error())
		return ""
	}
	m.registry.Fanout(s.GameID).Subscribe(sub)
	m.broadcast(s)
	m.registry.mu.Unlock()

	log.Printf("[GAME] Created game %s (stake=%v min_players=%d grid=%d)", s.GameID, s.Stake, s.MinPlayers, data.Grid)
	return s.GameID
}

// HandleJoin joins a specific game by id, redirecting when another
// instance owns it.
func (m *Machine) HandleJoin(ctx context.Context, sub Subscriber, data protocol.JoinData) string {
	if _, bound := m.registry.GameFor(data.PlayerID); bound {
		sendError(sub, ErrAlreadyInGame.Error())
		return ""
	}

	if m.registry.Get(data.GameID) != nil {
		gameID, ok := m.joinLocal(ctx, sub, data.GameID, data.PlayerID, data.Name)
		if !ok {
			sendError(sub, ErrNotJoinable.Error())
			return ""
		}
		return gameID
	}

	ad, err := m.directory.FindByID(ctx, data.GameID)
	if err != nil {
		log.Printf("[GAME] Directory lookup for %s failed: %v", data.GameID, err)
	}
	if ad != nil && ad.ServerID != m.instanceID {
		sub.TrySend(protocol.MustEncode(protocol.TypeRedirectToServer, protocol.RedirectData{
			GameID:     ad.GameID,
			InstanceID: ad.ServerID,
		}))
		return ""
	}

	sendError(sub, ErrNotJoinable.Error())
	return ""
}

// HandleMakeMove reveals a cell for the player holding the turn.
func (m *Machine) HandleMakeMove(ctx context.Context, sub Subscriber, playerID string, data protocol.MakeMoveData) {
	m.registry.mu.Lock()
	s := m.registry.sessions[data.GameID]
	if s == nil || s.State != StateRunning {
		m.registry.mu.Unlock()
		sendError(sub, ErrWrongGameState.Error())
		return
	}
	if playerID != "" && s.Players[s.TurnIdx].ID != playerID {
		m.registry.mu.Unlock()
		sendError(sub, ErrWrongGameState.Error())
		return
	}

	result, err := s.Board.Reveal(data.X, data.Y)
	if err != nil {
		m.registry.mu.Unlock()
		sendError(sub, err.Error())
		return
	}

	if result == board.Hit {
		m.finishLocked(ctx, s, s.TurnIdx)
		return
	}

	// Safe reveal clears the staged locks; the turn only advances on
	// LockComplete.
	s.Locks = nil
	m.broadcast(s)
	m.registry.mu.Unlock()
}

// HandleLock stages a candidate cell so co-players can see it during the
// current turn. Purely cosmetic: no directory write, no durability.
func (m *Machine) HandleLock(ctx context.Context, sub Subscriber, data protocol.LockData) {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	s := m.registry.sessions[data.GameID]
	if s == nil || s.State != StateRunning {
		sendError(sub, ErrWrongGameState.Error())
		return
	}
	s.Locks = append(s.Locks, [2]int{data.X, data.Y})
	m.broadcast(s)
}

// HandleLockComplete commits the turn hand-off.
func (m *Machine) HandleLockComplete(ctx context.Context, sub Subscriber, data protocol.LockCompleteData) {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	s := m.registry.sessions[data.GameID]
	if s == nil || s.State != StateRunning {
		sendError(sub, ErrWrongGameState.Error())
		return
	}
	s.TurnIdx = (s.TurnIdx + 1) % len(s.Players)
	s.Locks = nil
	m.broadcast(s)
}

// HandleStop terminates a game. abort=false forfeits the current turn
// holder's stake and settles; abort=true cancels with no settlement.
func (m *Machine) HandleStop(ctx context.Context, sub Subscriber, data protocol.StopData) {
	m.registry.mu.Lock()
	s := m.registry.sessions[data.GameID]
	if s == nil {
		m.registry.mu.Unlock()
		sendError(sub, ErrWrongGameState.Error())
		return
	}

	if data.Abort {
		if s.State != StateWaiting && s.State != StateRunning {
			m.registry.mu.Unlock()
			sendError(sub, ErrWrongGameState.Error())
			return
		}
		s.abort()
		for _, p := range s.Players {
			m.registry.UnbindPlayer(p.ID)
		}
		m.broadcast(s)
		m.registry.mu.Unlock()

		if err := m.directory.Remove(ctx, data.GameID); err != nil {
			log.Printf("[GAME] Failed to remove aborted game %s: %v", data.GameID, err)
		}
		return
	}

	if s.State != StateRunning {
		m.registry.mu.Unlock()
		sendError(sub, ErrWrongGameState.Error())
		return
	}
	m.finishLocked(ctx, s, s.TurnIdx)
}

// finishLocked applies RUNNING -> FINISHED, clears all participant
// bindings, broadcasts, and dispatches settlement at most once. Takes
// ownership of the registry write lock and releases it.
func (m *Machine) finishLocked(ctx context.Context, s *Session, loserIdx int) {
	s.finish(loserIdx)

	alreadySettled := s.settled
	s.settled = true

	for _, p := range s.Players {
		m.registry.UnbindPlayer(p.ID)
	}
	m.broadcast(s)

	gameID := s.GameID
	stake := s.Stake
	currency := s.Currency
	players := make([]player.Player, len(s.Players))
	copy(players, s.Players)
	m.registry.mu.Unlock()

	// RUNNING games are normally long gone from the directory; this covers
	// a session that finished while still advertised.
	if err := m.directory.Remove(ctx, gameID); err != nil {
		log.Printf("[GAME] Failed to remove finished game %s: %v", gameID, err)
	}

	if alreadySettled {
		return
	}
	go m.settle(gameID, players, loserIdx, stake, currency)
}

// settle invokes the external settlement collaborator. The FINISHED
// broadcast has already been emitted; failures are logged and left to the
// settlement side's replay handling.
func (m *Machine) settle(gameID string, players []player.Player, loserIdx int, stake float64, currency string) {
	if len(players) < 2 {
		log.Printf("[SETTLE] Game %s finished with a single participant, nothing to settle", gameID)
		return
	}

	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	winningShare := stake / float64(len(players)-1)

	if err := m.settler.UpdatePlayerBalances(context.Background(), ids, loserIdx, stake, winningShare, currency); err != nil {
		log.Printf("[SETTLE] Failed to settle game %s: %v", gameID, err)
	} else {
		log.Printf("[SETTLE] Settled game %s (loser=%s stake=%v share=%v %s)",
			gameID, players[loserIdx].ID, stake, winningShare, currency)
	}

	if m.notifier != nil {
		m.notifier.GameFinished(context.Background(), gameID, players[loserIdx].Name, stake, currency)
	}
}

// HandleRematchRequest rebuilds the board with the same shape and asks
// the other participants for a rematch.
func (m *Machine) HandleRematchRequest(ctx context.Context, sub Subscriber, data protocol.RematchRequestData) {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	s := m.registry.sessions[data.GameID]
	if s == nil || s.State != StateFinished {
		sendError(sub, ErrWrongGameState.Error())
		return
	}
	idx := s.PlayerIndex(data.Requester)
	if idx < 0 {
		sendError(sub, ErrWrongGameState.Error())
		return
	}

	fresh, err := board.New(s.Board.N, s.Board.HazardCount())
	if err != nil {
		sendError(sub, ErrTransientInternal.Error())
		return
	}
	s.enterRematch(fresh, idx)
	s.settled = false
	m.broadcast(s)
}

// HandleRematchResponse records a vote. A single decline aborts; the last
// acceptance restarts the game on the fresh board.
func (m *Machine) HandleRematchResponse(ctx context.Context, sub Subscriber, data protocol.RematchResponseData) {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	s := m.registry.sessions[data.GameID]
	if s == nil || s.State != StateRematch {
		sendError(sub, ErrWrongGameState.Error())
		return
	}
	idx := s.PlayerIndex(data.PlayerID)
	if idx < 0 {
		sendError(sub, ErrWrongGameState.Error())
		return
	}

	if !data.WantRematch {
		s.abort()
		m.broadcast(s)
		return
	}

	s.Accepted[idx] = true
	if !s.rematchAccepted() {
		m.broadcast(s)
		return
	}

	// Everyone is in: rebind the roster before restarting. A participant
	// who joined another game in the meantime sinks the rematch.
	bound := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		if err := m.registry.BindPlayer(p.ID, s.GameID); err != nil {
			for _, id := range bound {
				m.registry.UnbindPlayer(id)
			}
			log.Printf("[GAME] Rematch for %s aborted: %s already in another game", s.GameID, p.ID)
			s.abort()
			m.broadcast(s)
			return
		}
		bound = append(bound, p.ID)
	}

	s.startRunning()
	m.broadcast(s)
}

// HandlePing is keep-alive plus late subscription: a client that
// reconnected to the owning instance re-attaches its sink and rebinds its
// identity before sending any game action.
func (m *Machine) HandlePing(ctx context.Context, sub Subscriber, data protocol.PingData) {
	if data.GameID != "" {
		if m.registry.Get(data.GameID) != nil {
			m.registry.Fanout(data.GameID).Subscribe(sub)
			if data.PlayerID != "" {
				m.registry.RebindPlayer(data.PlayerID, data.GameID)
			}
		}
	}
	sub.TrySend(protocol.MustEncode(protocol.TypePong, nil))
}

// HandleDisconnect is the teardown path: a closed transport converts into
// a forfeit for a RUNNING participant, and an ABORT for the creator of a
// WAITING session. Without it a disconnected player would leak their
// stake.
func (m *Machine) HandleDisconnect(ctx context.Context, subKey, playerID, gameID string) {
	if gameID != "" {
		m.registry.Unsubscribe(gameID, subKey)
	}
	if playerID == "" {
		return
	}

	boundGame, ok := m.registry.GameFor(playerID)
	if !ok {
		return
	}

	m.registry.mu.Lock()
	s := m.registry.sessions[boundGame]
	if s == nil {
		m.registry.mu.Unlock()
		m.registry.UnbindPlayer(playerID)
		return
	}

	switch s.State {
	case StateWaiting:
		if creator := s.Creator(); creator != nil && creator.ID == playerID {
			s.abort()
			for _, p := range s.Players {
				m.registry.UnbindPlayer(p.ID)
			}
			m.broadcast(s)
			m.registry.mu.Unlock()

			if err := m.directory.Remove(ctx, boundGame); err != nil {
				log.Printf("[GAME] Failed to remove abandoned game %s: %v", boundGame, err)
			}
			return
		}
		// A non-creator leaving a waiting roster frees their seat.
		if idx := s.PlayerIndex(playerID); idx >= 0 {
			s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
		}
		m.registry.UnbindPlayer(playerID)
		count := len(s.Players)
		m.broadcast(s)
		m.registry.mu.Unlock()

		if err := m.directory.UpdatePlayerCount(ctx, boundGame, count); err != nil {
			log.Printf("[GAME] Failed to refresh player count for %s: %v", boundGame, err)
		}
		return

	case StateRunning:
		if idx := s.PlayerIndex(playerID); idx >= 0 {
			log.Printf("[GAME] Player %s disconnected mid-game %s, treating as forfeit", playerID, boundGame)
			m.finishLocked(ctx, s, idx)
			return
		}
	}

	m.registry.mu.Unlock()
	m.registry.UnbindPlayer(playerID)
}
