// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package notify publishes a message for every finished pipeline run.
//
// Messages are Watermill messages whose payload is the JSON RunReport and
// whose UUID is the run ID. Two transports exist: an in-process Go channel
// (always available) and NATS (built with -tags=nats). Publishing is
// best-effort: the pipeline logs a failed publish and carries on.
package notify

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/models"
)

// TopicRunCompleted is the default topic (NATS subject) for run reports.
const TopicRunCompleted = "pipeline.run.completed"

// Metadata keys set on every message.
const (
	MetadataStatus = "status"
	MetadataRunID  = "run_id"
)

// Publisher delivers run reports.
type Publisher interface {
	Publish(ctx context.Context, report *models.RunReport) error

	// Transport names the transport for metrics ("channel", "nats").
	Transport() string

	Close() error
}

// NewMessage encodes report as a Watermill message.
func NewMessage(report *models.RunReport) (*message.Message, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode run report: %w", err)
	}
	msg := message.NewMessage(report.ID, payload)
	msg.Metadata.Set(MetadataRunID, report.ID)
	msg.Metadata.Set(MetadataStatus, string(report.Status))
	return msg, nil
}

// DecodeReport decodes the payload of a message built by NewMessage.
func DecodeReport(msg *message.Message) (*models.RunReport, error) {
	var report models.RunReport
	if err := json.Unmarshal(msg.Payload, &report); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &report, nil
}

// Open returns the publisher selected by cfg: NATS when enabled, otherwise
// the in-process channel.
func Open(cfg *config.NATSConfig) (Publisher, error) {
	topic := cfg.Subject
	if topic == "" {
		topic = TopicRunCompleted
	}
	if cfg.Enabled {
		pub, err := NewNATSPublisher(cfg.URL, topic)
		if err != nil {
			return nil, err
		}
		return pub, nil
	}
	return NewChannelPublisher(topic), nil
}
