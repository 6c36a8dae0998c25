// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package notify

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/models"
)

// ChannelPublisher delivers run reports to in-process subscribers. Messages
// published while nobody is subscribed are dropped.
type ChannelPublisher struct {
	topic  string
	pubsub *gochannel.GoChannel
}

// NewChannelPublisher creates a ChannelPublisher on topic.
func NewChannelPublisher(topic string) *ChannelPublisher {
	return &ChannelPublisher{
		topic: topic,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 16,
		}, logging.NewWatermillAdapter()),
	}
}

// Publish implements Publisher.
func (p *ChannelPublisher) Publish(_ context.Context, report *models.RunReport) error {
	msg, err := NewMessage(report)
	if err != nil {
		return err
	}
	if err := p.pubsub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.topic, err)
	}
	return nil
}

// Subscribe returns a channel of run-report messages. The caller must Ack
// each message. The channel closes when ctx is done or the publisher closes.
func (p *ChannelPublisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(ctx, p.topic)
}

// Transport implements Publisher.
func (p *ChannelPublisher) Transport() string {
	return "channel"
}

// Close implements Publisher.
func (p *ChannelPublisher) Close() error {
	return p.pubsub.Close()
}
