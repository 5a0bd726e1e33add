package game

import (
	"fmt"
	"math/rand/v2"
)

// Game ids are short human-readable tokens like #48112. The space is
// small enough that collisions happen in practice, so creation checks
// the insert result and retries.
const idAttempts = 50

func newGameID() string {
	return fmt.Sprintf("#%d", rand.IntN(90000)+10000)
}
