// internal/game/deck.go
package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jason-s-yu/loteria/internal/models"
)

// BoardSize is the number of cells on a player's 4x4 board.
const BoardSize = 16

// GenerateDeck returns a uniformly random permutation of the full catalog.
func GenerateDeck(r *rand.Rand) []models.Card {
	deck := Catalog()
	shuffle(r, len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// GenerateBoard samples BoardSize distinct catalog card ids, row-major.
// Boards are independent per player and may coincide across players.
func GenerateBoard(r *rand.Rand) []int {
	ids := make([]int, len(catalog))
	for i, c := range catalog {
		ids[i] = c.ID
	}
	shuffle(r, len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids[:BoardSize:BoardSize]
}

// shuffle is a Fisher-Yates pass from the top of the slice down.
func shuffle(r *rand.Rand, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}

// Dealer serializes access to a single random source so decks and boards
// can be generated from many goroutines.
type Dealer struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewDealer seeds a dealer; a zero seed uses the current time.
func NewDealer(seed int64) *Dealer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Dealer{r: rand.New(rand.NewSource(seed))}
}

// Deck deals a freshly shuffled deck.
func (d *Dealer) Deck() []models.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return GenerateDeck(d.r)
}

// Board deals a fresh player board.
func (d *Dealer) Board() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return GenerateBoard(d.r)
}
