// Package discovery advertises joinable game sessions in the shared Redis
// directory so any instance in the cluster can route a player to the
// instance that owns a matching game. Entries are TTL-bounded; a crashed
// instance's advertisements expire on their own.
package discovery

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Advertisement is one joinable session as seen through the directory.
type Advertisement struct {
	GameID         string
	ServerID       string
	Stake          float64
	MinPlayers     int
	GridSize       int
	CurrentPlayers int
}

// Service wraps the directory operations. All operations are best-effort;
// callers log failures and keep local state authoritative.
type Service struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a discovery service with the given advertisement TTL.
func New(rdb *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	return &Service{rdb: rdb, ttl: ttl}
}

func sessionKey(gameID string) string {
	return "game_session:" + gameID
}

func matchmakingKey(stake float64, minPlayers, gridSize int) string {
	return fmt.Sprintf("matchmaking:%s:%d:%d", formatStake(stake), minPlayers, gridSize)
}

func formatStake(stake float64) string {
	return strconv.FormatFloat(stake, 'f', -1, 64)
}

// Register writes the session hash and adds the game to its attribute
// index set, refreshing the TTL on both.
func (s *Service) Register(ctx context.Context, ad Advertisement) error {
	key := sessionKey(ad.GameID)
	indexKey := matchmakingKey(ad.Stake, ad.MinPlayers, ad.GridSize)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"server_id", ad.ServerID,
		"stake", formatStake(ad.Stake),
		"min_players", strconv.Itoa(ad.MinPlayers),
		"current_players", strconv.Itoa(ad.CurrentPlayers),
		"grid_size", strconv.Itoa(ad.GridSize),
	)
	pipe.SAdd(ctx, indexKey, ad.GameID)
	pipe.Expire(ctx, key, s.ttl)
	pipe.Expire(ctx, indexKey, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register game session %s: %w", ad.GameID, err)
	}

	log.Printf("[DISCOVERY] Registered game %s (stake=%s min_players=%d grid=%d server=%s)",
		ad.GameID, formatStake(ad.Stake), ad.MinPlayers, ad.GridSize, ad.ServerID)
	return nil
}

// FindByAttrs returns one random advertised session matching the attribute
// triple that still has room, or nil if none. Two concurrent callers may
// pick the same advertisement; the owning instance resolves the race.
func (s *Service) FindByAttrs(ctx context.Context, stake float64, minPlayers, gridSize int) (*Advertisement, error) {
	indexKey := matchmakingKey(stake, minPlayers, gridSize)

	gameID, err := s.rdb.SRandMember(ctx, indexKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pick candidate from %s: %w", indexKey, err)
	}

	ad, err := s.fetch(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		// Hash expired but the index member lingered; drop the stale member.
		s.rdb.SRem(ctx, indexKey, gameID)
		return nil, nil
	}
	if ad.CurrentPlayers >= ad.MinPlayers {
		return nil, nil
	}
	return ad, nil
}

// FindByID returns the advertisement for a specific game if it is present
// and still has room.
func (s *Service) FindByID(ctx context.Context, gameID string) (*Advertisement, error) {
	ad, err := s.fetch(ctx, gameID)
	if err != nil || ad == nil {
		return nil, err
	}
	if ad.CurrentPlayers >= ad.MinPlayers {
		return nil, nil
	}
	return ad, nil
}

// UpdatePlayerCount rewrites current_players and refreshes the TTL.
func (s *Service) UpdatePlayerCount(ctx context.Context, gameID string, count int) error {
	key := sessionKey(gameID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "current_players", strconv.Itoa(count))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update player count for %s: %w", gameID, err)
	}
	return nil
}

// Remove deletes the session hash and its index membership. Called on
// every transition out of an advertised state.
func (s *Service) Remove(ctx context.Context, gameID string) error {
	ad, err := s.fetch(ctx, gameID)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	if ad != nil {
		pipe.SRem(ctx, matchmakingKey(ad.Stake, ad.MinPlayers, ad.GridSize), gameID)
	}
	pipe.Del(ctx, sessionKey(gameID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove game session %s: %w", gameID, err)
	}

	log.Printf("[DISCOVERY] Removed game %s", gameID)
	return nil
}

func (s *Service) fetch(ctx context.Context, gameID string) (*Advertisement, error) {
	values, err := s.rdb.HGetAll(ctx, sessionKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch game session %s: %w", gameID, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	stake, err := strconv.ParseFloat(values["stake"], 64)
	if err != nil {
		return nil, fmt.Errorf("game session %s has bad stake %q", gameID, values["stake"])
	}
	minPlayers, err := strconv.Atoi(values["min_players"])
	if err != nil {
		return nil, fmt.Errorf("game session %s has bad min_players %q", gameID, values["min_players"])
	}
	currentPlayers, err := strconv.Atoi(values["current_players"])
	if err != nil {
		return nil, fmt.Errorf("game session %s has bad current_players %q", gameID, values["current_players"])
	}
	gridSize, err := strconv.Atoi(values["grid_size"])
	if err != nil {
		return nil, fmt.Errorf("game session %s has bad grid_size %q", gameID, values["grid_size"])
	}

	return &Advertisement{
		GameID:         gameID,
		ServerID:       values["server_id"],
		Stake:          stake,
		MinPlayers:     minPlayers,
		GridSize:       gridSize,
		CurrentPlayers: currentPlayers,
	}, nil
}
