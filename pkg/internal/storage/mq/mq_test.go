package mq_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docshelf/pkg/configs"
	"github.com/yeisme/docshelf/pkg/internal/storage/mq"
)

func newGoChannel(t *testing.T) *mq.Client {
	t.Helper()

	client, err := mq.New(context.Background(), configs.MQConfig{
		Type:   configs.MQTypeGoChannel,
		Common: configs.MQCommonConfig{ChannelBufferSize: 8},
	}, false)
	require.NoError(t, err)

	return client
}

func TestGoChannelPublishSubscribe(t *testing.T) {
	client := newGoChannel(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := client.Subscribe(ctx, "registry.added")
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "registry.added", message.NewMessage(watermill.NewUUID(), []byte(`{"id":"a"}`))))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"id":"a"}`, string(msg.Payload))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestRouterHandle(t *testing.T) {
	client := newGoChannel(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 1)

	client.Handle("log-removed", "registry.removed", func(msg *message.Message) error {
		got <- string(msg.Payload)
		return nil
	})

	go func() { _ = client.Run(ctx) }()

	select {
	case <-client.Running():
	case <-ctx.Done():
		t.Fatal("router did not start")
	}

	require.NoError(t, client.Publish(ctx, "registry.removed", message.NewMessage(watermill.NewUUID(), []byte("x"))))

	select {
	case payload := <-got:
		assert.Equal(t, "x", payload)
	case <-ctx.Done():
		t.Fatal("handler not invoked")
	}
}

func TestUnsupportedType(t *testing.T) {
	_, err := mq.New(context.Background(), configs.MQConfig{Type: "kafka"}, false)
	require.Error(t, err)
	assert.Contains(t, mq.RegisteredTypes(), configs.MQTypeNATS)
}
