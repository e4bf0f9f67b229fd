package watermillbroker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/mmna-launch/crowdsale/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const notificationsTopic = "sale-notifications"

type broker struct {
	pubsub *gochannel.GoChannel
}

func NewEventBroker(bufferSize int) ports.EventBroker {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(bufferSize)},
		newLogger(log.StandardLogger()),
	)
	return &broker{pubsub}
}

func (b *broker) Publish(
	_ context.Context, notifications ...ports.SaleNotification,
) error {
	messages := make([]*message.Message, 0, len(notifications))
	for _, notification := range notifications {
		payload, err := json.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification: %s", err)
		}
		messages = append(messages, message.NewMessage(watermill.NewUUID(), payload))
	}
	return b.pubsub.Publish(notificationsTopic, messages...)
}

func (b *broker) Subscribe(ctx context.Context) (<-chan ports.SaleNotification, error) {
	messages, err := b.pubsub.Subscribe(ctx, notificationsTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %s", err)
	}

	out := make(chan ports.SaleNotification)
	go func() {
		defer close(out)
		for msg := range messages {
			var notification ports.SaleNotification
			if err := json.Unmarshal(msg.Payload, &notification); err != nil {
				log.WithError(err).Warn("dropping malformed notification")
				msg.Ack()
				continue
			}
			select {
			case out <- notification:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

func (b *broker) Close() error {
	return b.pubsub.Close()
}

type logger struct {
	entry *log.Entry
}

func newLogger(l *log.Logger) watermill.LoggerAdapter {
	return &logger{log.NewEntry(l).WithField("component", "broker")}
}

func (l *logger) Error(msg string, err error, fields watermill.LogFields) {
	l.entry.WithFields(log.Fields(fields)).WithError(err).Error(msg)
}

func (l *logger) Info(msg string, fields watermill.LogFields) {
	l.entry.WithFields(log.Fields(fields)).Info(msg)
}

func (l *logger) Debug(msg string, fields watermill.LogFields) {
	l.entry.WithFields(log.Fields(fields)).Debug(msg)
}

func (l *logger) Trace(msg string, fields watermill.LogFields) {
	l.entry.WithFields(log.Fields(fields)).Trace(msg)
}

func (l *logger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logger{l.entry.WithFields(log.Fields(fields))}
}
