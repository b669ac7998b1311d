package entity

// Player is one queued matchmaking request.
type Player struct {
	Name   string `json:"name"`
	ID     uint64 `json:"id"`
	GameID uint64 `json:"game_id"`
}

// Pairing is the opponent assigned to a queued player.
type Pairing struct {
	Opponent Player `json:"opponent"`
	// GoesFirst is true for the player that supplies the initial board.
	GoesFirst bool `json:"goes_first"`
}
