package player

// Player is a stable, externally assigned identity bound to at most one
// active game at a time. Immutable after creation.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// New creates a player record.
func New(id, name string) Player {
	return Player{ID: id, Name: name}
}
