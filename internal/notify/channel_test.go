// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/models"
)

func testReport() *models.RunReport {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.RunReport{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Status:     models.RunSucceeded,
		EventsRead: 3,
		Materializations: []models.MaterializationReport{
			{Name: "recently_played", Status: models.MaterializationCommitted, Candidates: 3, Inserted: 3, Total: 3},
		},
	}
}

func TestNewMessage(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(testReport())
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if msg.UUID != "run-1" {
		t.Errorf("UUID = %q, want run id", msg.UUID)
	}
	if got := msg.Metadata.Get(MetadataStatus); got != "succeeded" {
		t.Errorf("status metadata = %q", got)
	}

	report, err := DecodeReport(msg)
	if err != nil {
		t.Fatalf("DecodeReport() error = %v", err)
	}
	if report.ID != "run-1" || report.Inserted() != 3 {
		t.Errorf("decoded report = %+v", report)
	}
}

func TestChannelPublisher_Delivers(t *testing.T) {
	t.Parallel()

	pub := NewChannelPublisher(TopicRunCompleted)
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := pub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := pub.Publish(ctx, testReport()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		report, err := DecodeReport(msg)
		if err != nil {
			t.Fatalf("DecodeReport() error = %v", err)
		}
		if report.Status != models.RunSucceeded {
			t.Errorf("Status = %q", report.Status)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestChannelPublisher_NoSubscribers(t *testing.T) {
	t.Parallel()

	pub := NewChannelPublisher("unused")
	defer pub.Close()

	if err := pub.Publish(context.Background(), testReport()); err != nil {
		t.Errorf("Publish() without subscribers error = %v", err)
	}
	if pub.Transport() != "channel" {
		t.Errorf("Transport() = %q", pub.Transport())
	}
}

func TestOpen_Disabled(t *testing.T) {
	t.Parallel()

	pub, err := Open(&config.NATSConfig{Enabled: false, Subject: "custom.subject"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer pub.Close()

	cp, ok := pub.(*ChannelPublisher)
	if !ok {
		t.Fatalf("Open() = %T, want *ChannelPublisher", pub)
	}
	if cp.topic != "custom.subject" {
		t.Errorf("topic = %q", cp.topic)
	}
}
