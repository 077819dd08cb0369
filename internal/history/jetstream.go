// internal/history/jetstream.go
package history

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erilali/neonchat/internal/logger"
	"github.com/erilali/neonchat/internal/protocol"
	"github.com/nats-io/nats.go"
)

const (
	StreamName           = "CHAT_HISTORY"
	subjectPrefix        = "history."
	historyRetention     = 7 * 24 * time.Hour
	historyFetchBatch    = 200
	historyFetchMaxWait  = 2 * time.Second
	readerConsumerPrefix = "HISTORY_READER_"
)

// JetStreamStore keeps room history in a file-backed JetStream stream,
// one subject per room.
type JetStreamStore struct {
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewJetStreamStore creates or updates the history stream.
func NewJetStreamStore(js nats.JetStreamContext, log *logger.Logger) (*JetStreamStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	streamConfig := &nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjectPrefix + "*"},
		Storage:  nats.FileStorage,
		MaxAge:   historyRetention,
	}
	if _, err := js.StreamInfo(StreamName); err != nil {
		if _, err := js.AddStream(streamConfig); err != nil {
			return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
		}
		log.Infof("Created stream: %s", StreamName)
	} else {
		if _, err := js.UpdateStream(streamConfig); err != nil {
			return nil, fmt.Errorf("update stream %s: %w", StreamName, err)
		}
		log.Infof("Updated stream: %s", StreamName)
	}
	return &JetStreamStore{js: js, logger: log}, nil
}

// subjectFor maps a room to a single subject token. Room names may hold
// characters that are not valid in subjects, so they are hex encoded.
func subjectFor(room string) string {
	return subjectPrefix + hex.EncodeToString([]byte(room))
}

func (s *JetStreamStore) Append(ctx context.Context, room string, msg protocol.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	if _, err := s.js.Publish(subjectFor(room), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish history for %q: %w", room, err)
	}
	return nil
}

func (s *JetStreamStore) Recent(ctx context.Context, room string, limit int) ([]protocol.ChatMessage, error) {
	subject := subjectFor(room)

	info, err := s.js.StreamInfo(StreamName, &nats.StreamInfoRequest{SubjectsFilter: subject})
	if err != nil {
		return nil, fmt.Errorf("stream info for %q: %w", room, err)
	}
	if info.State.Subjects[subject] == 0 {
		return nil, nil
	}

	consumerName := fmt.Sprintf("%s%s_%d", readerConsumerPrefix, subject[len(subjectPrefix):], time.Now().UnixNano())
	_, err = s.js.AddConsumer(StreamName, &nats.ConsumerConfig{
		Name:          consumerName,
		DeliverPolicy: nats.DeliverAllPolicy,
		AckPolicy:     nats.AckNonePolicy,
		FilterSubject: subject,
	})
	if err != nil {
		return nil, fmt.Errorf("create history consumer %s: %w", consumerName, err)
	}
	defer func() {
		if delErr := s.js.DeleteConsumer(StreamName, consumerName); delErr != nil {
			s.logger.Warnf("Error deleting history consumer %s: %v", consumerName, delErr)
		}
	}()

	sub, err := s.js.PullSubscribe(subject, consumerName, nats.Bind(StreamName, consumerName))
	if err != nil {
		return nil, fmt.Errorf("subscribe history consumer %s: %w", consumerName, err)
	}
	defer func() {
		if unsubErr := sub.Unsubscribe(); unsubErr != nil {
			s.logger.Warnf("Error unsubscribing history consumer %s: %v", consumerName, unsubErr)
		}
	}()

	t := newTail(limit)
	for {
		fetchCtx, cancel := context.WithTimeout(ctx, historyFetchMaxWait)
		msgs, err := sub.Fetch(historyFetchBatch, nats.Context(fetchCtx))
		cancel()
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, fmt.Errorf("fetch history for %q: %w", room, err)
		}

		var pending uint64
		for _, msg := range msgs {
			if meta, err := msg.Metadata(); err == nil {
				pending = meta.NumPending
			}
			var entry protocol.ChatMessage
			if err := json.Unmarshal(msg.Data, &entry); err != nil {
				s.logger.Warnf("Skipping corrupt history entry on %s: %v", subject, err)
				continue
			}
			t.push(entry)
		}
		if len(msgs) == 0 || pending == 0 {
			break
		}
	}
	return t.items, nil
}

// Close is a no-op; the NATS connection is owned by the caller.
func (s *JetStreamStore) Close() error { return nil }
