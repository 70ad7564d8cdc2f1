package engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPayloads(t *testing.T) {
	payloads := BasicPayloads(4096)
	require.Len(t, payloads, 5)

	assert.Len(t, payloads[0], 16)
	assert.Greater(t, len(payloads[1]), utf8.RuneCountInString(payloads[1]), "multi-byte payload")
	assert.Len(t, payloads[2], 100)
	assert.Len(t, payloads[3], 1000)
	assert.Len(t, payloads[4], 4000)

	for _, p := range BasicPayloads(1024) {
		assert.LessOrEqual(t, len(p), 1024)
	}
}

func TestBurstMessageIsUnique(t *testing.T) {
	a, b := BurstMessage(1), BurstMessage(1)

	assert.True(t, strings.HasPrefix(a, "Client-1-"))
	assert.NotEqual(t, a, b)
}

func TestSustainedMessageSize(t *testing.T) {
	for _, size := range []int{100, 500, 1000} {
		msg := SustainedMessage(42, 3, size)

		assert.Len(t, msg, size)
		assert.True(t, strings.HasPrefix(msg, "Client-42-Msg-3-"))
	}

	assert.Equal(t, "Client-1-Msg-1-", SustainedMessage(1, 1, 4))
}

func TestPickSize(t *testing.T) {
	sizes := []int{100, 500, 1000}

	for range 50 {
		assert.Contains(t, sizes, PickSize(sizes))
	}

	assert.Zero(t, PickSize(nil))
}
