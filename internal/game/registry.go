package game

// ConnID is the opaque handle of one transport connection.
type ConnID string

// Registry maps live connections to the player identity they authenticated
// as. It is owned by the MatchManager and only touched under its lock.
type Registry struct {
	players map[ConnID]string
}

func NewRegistry() *Registry {
	return &Registry{players: make(map[ConnID]string)}
}

// Register binds conn to playerID, replacing any earlier binding.
func (r *Registry) Register(conn ConnID, playerID string) {
	r.players[conn] = playerID
}

func (r *Registry) Lookup(conn ConnID) (string, bool) {
	playerID, ok := r.players[conn]
	return playerID, ok
}

// Remove drops conn and reports whether it was registered.
func (r *Registry) Remove(conn ConnID) bool {
	if _, ok := r.players[conn]; !ok {
		return false
	}
	delete(r.players, conn)
	return true
}

func (r *Registry) Len() int {
	return len(r.players)
}
