package engine

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/segmentio/ksuid"
)

// BasicPayloads returns the ordered payloads of the single-session check. The
// last one is sized close to the receive buffer to exercise the boundary.
func BasicPayloads(bufferSize int) []string {
	boundary := 4000
	if bufferSize > 0 && bufferSize < 4096 {
		boundary = bufferSize - bufferSize/40
	}

	return []string{
		"Hello, echo peer",
		"你好，世界！",
		strings.Repeat("A", 100),
		strings.Repeat("B", 1000),
		strings.Repeat("C", boundary),
	}
}

// BurstMessage returns a message that identifies one client of a burst.
func BurstMessage(client int) string {
	return fmt.Sprintf("Client-%d-%s", client, ksuid.New().String())
}

// SustainedMessage returns a message of exactly size bytes when size is larger
// than its identifying prefix.
func SustainedMessage(client, round, size int) string {
	prefix := fmt.Sprintf("Client-%d-Msg-%d-", client, round)
	if size <= len(prefix) {
		return prefix
	}

	return prefix + strings.Repeat("X", size-len(prefix))
}

// PickSize returns one of sizes at random. An empty set yields 0.
func PickSize(sizes []int) int {
	if len(sizes) == 0 {
		return 0
	}

	return sizes[rand.IntN(len(sizes))]
}
