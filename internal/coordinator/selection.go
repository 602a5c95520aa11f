package coordinator

import (
	"math"
	"math/rand"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/participant"
)

// numToSelect computes how many participants take part in a round: the
// configured ratio of the pool, rounded up, never below the configured
// minimum and never above the pool size.
func numToSelect(pool int, ratio float64, minParticipants int) int {
	n := int(math.Ceil(ratio * float64(pool)))
	if n < minParticipants {
		n = minParticipants
	}
	if n > pool {
		n = pool
	}
	return n
}

// selectParticipants draws n distinct participants from the pool using the
// supplied source of randomness.
func selectParticipants(pool []*participant.Participant, n int, rng *rand.Rand) []*participant.Participant {
	selected := make([]*participant.Participant, 0, n)
	for _, i := range rng.Perm(len(pool))[:n] {
		selected = append(selected, pool[i])
	}
	return selected
}
