package repository

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rocketscienceinc/boardgames-server/internal/apperror"
	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

type queueEntry struct {
	player  entity.Player
	pairing *entity.Pairing
}

// PlayerMatcher is the matchmaking queue. Entries keep their insertion order,
// so the player that has waited longest is always paired first.
type PlayerMatcher struct {
	mu      sync.Mutex
	entries []*queueEntry
}

func NewPlayerMatcher() *PlayerMatcher {
	return &PlayerMatcher{}
}

// Push queues a player that has no opponent yet.
func (that *PlayerMatcher) Push(player entity.Player) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.insert(&queueEntry{player: player})
}

// PushPaired queues a player that already has an opponent. The opponent itself is not queued.
func (that *PlayerMatcher) PushPaired(player, opponent entity.Player, goesFirst bool) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.insert(&queueEntry{
		player:  player,
		pairing: &entity.Pairing{Opponent: opponent, GoesFirst: goesFirst},
	})
}

func (that *PlayerMatcher) insert(entry *queueEntry) error {
	if that.indexOf(entry.player.ID) >= 0 {
		return fmt.Errorf("%w: player %d", apperror.ErrDuplicatePlayer, entry.player.ID)
	}

	that.entries = append(that.entries, entry)

	return nil
}

// TryPop removes the player and returns its pairing once an opponent was assigned.
// A player that is still waiting, or not queued at all, is left untouched.
func (that *PlayerMatcher) TryPop(playerID uint64) (entity.Pairing, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	i := that.indexOf(playerID)
	if i < 0 || that.entries[i].pairing == nil {
		return entity.Pairing{}, false
	}

	pairing := *that.entries[i].pairing
	that.entries = slices.Delete(that.entries, i, i+1)

	return pairing, true
}

// FindMatches pairs every two waiting players that asked for the same game.
// Both sides are assigned; the one queued earlier goes first. It returns the number of new pairs.
func (that *PlayerMatcher) FindMatches() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	var matched int

	for i, first := range that.entries {
		if first.pairing != nil {
			continue
		}

		for _, second := range that.entries[i+1:] {
			if second.pairing != nil {
				continue
			}

			if first.player.ID == second.player.ID || first.player.GameID != second.player.GameID {
				continue
			}

			first.pairing = &entity.Pairing{Opponent: second.player, GoesFirst: true}
			second.pairing = &entity.Pairing{Opponent: first.player, GoesFirst: false}
			matched++

			break
		}
	}

	return matched
}

func (that *PlayerMatcher) TryGetByPlayerID(playerID uint64) (entity.Player, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	i := that.indexOf(playerID)
	if i < 0 {
		return entity.Player{}, false
	}

	return that.entries[i].player, true
}

func (that *PlayerMatcher) Clear() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.entries = nil
}

func (that *PlayerMatcher) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.entries)
}

// Foreach calls fn for every queued player while holding the lock; pairing is nil for waiting players.
// fn must not call back into the matcher.
func (that *PlayerMatcher) Foreach(fn func(player entity.Player, pairing *entity.Pairing)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, entry := range that.entries {
		var pairing *entity.Pairing
		if entry.pairing != nil {
			copied := *entry.pairing
			pairing = &copied
		}

		fn(entry.player, pairing)
	}
}

func (that *PlayerMatcher) indexOf(playerID uint64) int {
	for i, entry := range that.entries {
		if entry.player.ID == playerID {
			return i
		}
	}

	return -1
}
