package watermillbroker_test

import (
	"context"
	"testing"
	"time"

	"github.com/mmna-launch/crowdsale/internal/core/ports"
	watermillbroker "github.com/mmna-launch/crowdsale/internal/infrastructure/broker/watermill"
	"github.com/stretchr/testify/require"
)

func TestEventBroker(t *testing.T) {
	broker := watermillbroker.NewEventBroker(8)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	first, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	second, err := broker.Subscribe(ctx)
	require.NoError(t, err)

	notifications := []ports.SaleNotification{
		{Type: "TOKENS_PURCHASED", SaleId: "sale", Round: "ROUND_1", Timestamp: 1},
		{Type: "ROUND_SWITCHED", SaleId: "sale", Round: "ROUND_2", Timestamp: 2},
	}
	require.NoError(t, broker.Publish(context.Background(), notifications...))

	for _, ch := range []<-chan ports.SaleNotification{first, second} {
		for _, expected := range notifications {
			select {
			case got := <-ch:
				require.Equal(t, expected, got)
			case <-time.After(5 * time.Second):
				t.Fatal("timed out waiting for notification")
			}
		}
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-first
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}
