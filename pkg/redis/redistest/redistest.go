// Package redistest provides redis clients backed by miniredis for tests.
package redistest

import (
	"testing"

	"github.com/angelmondragon/rentalkit-backend/pkg/redis"
)

// New returns a client bound to a fresh miniredis server that is torn down
// when the test finishes.
func New(tb testing.TB) *redis.Client {
	tb.Helper()
	client, err := redis.NewInMemory()
	if err != nil {
		tb.Fatalf("start in-memory redis: %v", err)
	}
	tb.Cleanup(func() { _ = client.Close() })
	return client
}
