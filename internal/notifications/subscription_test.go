package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionDisposeRunsOnce(t *testing.T) {
	calls := 0
	sub := NewSubscription(func() { calls++ })

	sub.Dispose()
	sub.Dispose()

	assert.Equal(t, 1, calls)
}

func TestSubscriptionsDisposesAll(t *testing.T) {
	var a, b int
	group := Subscriptions(
		NewSubscription(func() { a++ }),
		nil,
		NewSubscription(func() { b++ }),
	)

	group.Dispose()
	group.Dispose()

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestNilDisposer(t *testing.T) {
	assert.NotPanics(t, func() { NewSubscription(nil).Dispose() })
}
