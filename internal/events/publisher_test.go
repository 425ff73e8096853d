package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"account_system/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "account.transaction.used", RoutingKey("account", domain.EventTransactionUsed))
	assert.Equal(t, "account.transaction.cancelled", RoutingKey("account", domain.EventTransactionCancelled))
}

// startRabbitMQContainer starts a RabbitMQ testcontainer and returns the connection URL.
func startRabbitMQContainer(t *testing.T, ctx context.Context) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3-management-alpine",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start rabbitmq container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)
	return "amqp://guest:guest@" + host + ":" + port.Port() + "/"
}

func TestPublishTransactionIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	url := startRabbitMQContainer(t, ctx)

	publisher, err := NewRabbitMQPublisher(url, "account")
	require.NoError(t, err)
	defer publisher.Close()

	// Bind a private queue to every transaction event
	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "account.transaction.*", "account", false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	event := domain.TransactionEvent{
		EventType:       domain.EventTransactionUsed,
		TransactionID:   "0123456789abcdef0123456789abcdef",
		AccountNumber:   "0000000000",
		Amount:          1000,
		BalanceSnapshot: 9000,
		TransactedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, publisher.PublishTransaction(ctx, event))

	select {
	case d := <-deliveries:
		assert.Equal(t, "account.transaction.used", d.RoutingKey)
		assert.Equal(t, "application/json", d.ContentType)
		assert.Equal(t, event.TransactionID, d.MessageId)
		var got domain.TransactionEvent
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, event.AccountNumber, got.AccountNumber)
		assert.Equal(t, event.BalanceSnapshot, got.BalanceSnapshot)
		assert.True(t, event.TransactedAt.Equal(got.TransactedAt))
	case <-time.After(10 * time.Second):
		t.Fatal("event was not delivered")
	}
}
