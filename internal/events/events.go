// Package events publishes friendship workflow events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	TypeRequestSent      = "friend_request.sent"
	TypeRequestCancelled = "friend_request.cancelled"
	TypeRequestAccepted  = "friend_request.accepted"
	TypeRequestRejected  = "friend_request.rejected"
)

type FriendshipEvent struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	RequestID    *uuid.UUID `json:"request_id,omitempty"`
	FriendshipID *uuid.UUID `json:"friendship_id,omitempty"`
	SenderID     uuid.UUID  `json:"sender_id"`
	ReceiverID   uuid.UUID  `json:"receiver_id"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// NewFriendshipEvent fills in the event id and timestamp.
func NewFriendshipEvent(eventType string, senderID, receiverID uuid.UUID) FriendshipEvent {
	return FriendshipEvent{
		ID:         uuid.New(),
		Type:       eventType,
		SenderID:   senderID,
		ReceiverID: receiverID,
		OccurredAt: time.Now().UTC(),
	}
}

// PairKey is the partition key for an event: both members of the pair in a
// fixed order, so all events for a pair land on one partition.
func (e FriendshipEvent) PairKey() string {
	a, b := e.SenderID.String(), e.ReceiverID.String()
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

type Publisher interface {
	Publish(ctx context.Context, event FriendshipEvent) error
	Close() error
}

// NopPublisher drops events. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, FriendshipEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic, clientID string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
			Transport:    &kafka.Transport{ClientID: clientID},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event FriendshipEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PairKey()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
