// Package channels implements the file-backed inter-agent message
// channel subsystem: named FIFO queues with blocking listen semantics,
// bounded history, and advisory-locked JSON persistence so sibling tool
// instances on the same host can rendezvous without a broker.
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bdobrica/Ruriko/internal/hub/channels/filestate"
)

// Message is one enqueued or historical channel entry.
type Message struct {
	ID        string         `json:"id"`
	Channel   string         `json:"channel"`
	Content   any            `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	SenderID  string         `json:"sender_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ChannelInfo is the metadata side of a channel's record.
type ChannelInfo struct {
	TotalMessagesSent int64     `json:"total_messages_sent"`
	PendingMessages   int       `json:"pending_messages"`
	DroppedMessages   int64     `json:"dropped_messages"`
	LastActivity      time.Time `json:"last_activity"`
}

// Manager coordinates reads and writes against channels.json and
// history.json under dir.
type Manager struct {
	state         *filestate.Store
	maxQueueSize  int
	maxHistory    int
	pollInterval  time.Duration
}

// Config tunes the bounded queue and history sizes and the listen poll
// cadence.
type Config struct {
	Dir          string
	MaxQueueSize int
	MaxHistory   int
	PollInterval time.Duration
}

// New creates a Manager rooted at cfg.Dir, applying sensible defaults for
// any zero-valued tuning field.
func New(cfg Config) *Manager {
	if cfg.MaxQueueSize == 0 {
		cfg.MaxQueueSize = 1000
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = 200
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return &Manager{
		state:        filestate.New(cfg.Dir),
		maxQueueSize: cfg.MaxQueueSize,
		maxHistory:   cfg.MaxHistory,
		pollInterval: cfg.PollInterval,
	}
}

// Send enqueues content on channel and appends it to history, returning
// the generated message. Under sustained pressure beyond max_queue_size,
// the oldest pending message is dropped (drop-oldest overflow policy) and
// DroppedMessages is incremented; send itself always succeeds.
func (m *Manager) Send(ctx context.Context, channel string, content any, metadata map[string]any, senderID string) (*Message, error) {
	msg := &Message{
		ID:        uuid.NewString(),
		Channel:   channel,
		Content:   content,
		Metadata:  metadata,
		SenderID:  senderID,
		Timestamp: time.Now().UTC(),
	}

	err := m.state.WriteChannels(func(doc *filestate.ChannelsDoc) error {
		rec := doc.Get(channel)
		rec.Pending = append(rec.Pending, mustMarshalMessage(msg))
		if len(rec.Pending) > m.maxQueueSize {
			dropped := len(rec.Pending) - m.maxQueueSize
			rec.Pending = rec.Pending[dropped:]
			rec.Info.DroppedMessages += int64(dropped)
		}
		rec.Info.TotalMessagesSent++
		rec.Info.PendingMessages = len(rec.Pending)
		rec.Info.LastActivity = msg.Timestamp
		doc.Set(channel, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("channels: send: %w", err)
	}

	if err := m.appendHistory(channel, msg); err != nil {
		return nil, fmt.Errorf("channels: send history: %w", err)
	}

	return msg, nil
}

func (m *Manager) appendHistory(channel string, msg *Message) error {
	return m.state.WriteHistory(func(doc *filestate.HistoryDoc) error {
		entries := doc.Get(channel)
		entries = append(entries, mustMarshalMessage(msg))
		if len(entries) > m.maxHistory {
			entries = entries[len(entries)-m.maxHistory:]
		}
		doc.Set(channel, entries)
		return nil
	})
}

// ListenResult is the outcome of a Listen call.
// Listen outcome values for ListenResult.Status.
const (
	ListenStatusOK      = "received"
	ListenStatusTimeout = "timeout"
)

type ListenResult struct {
	Status  string // ListenStatusOK or ListenStatusTimeout
	Message *Message
}

// Listen increments the channel's listener count, polls for a pending
// message at pollInterval, and always decrements the listener count on
// return (including cancellation), regardless of how it exits.
func (m *Manager) Listen(ctx context.Context, channel string, timeout time.Duration) (*ListenResult, error) {
	if err := m.adjustListeners(channel, 1); err != nil {
		return nil, fmt.Errorf("channels: listen: %w", err)
	}
	defer m.adjustListeners(channel, -1) //nolint:errcheck

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		msg, ok, err := m.popOldest(channel)
		if err != nil {
			return nil, fmt.Errorf("channels: listen poll: %w", err)
		}
		if ok {
			return &ListenResult{Status: ListenStatusOK, Message: msg}, nil
		}

		if timeout > 0 && time.Now().After(deadline) {
			return &ListenResult{Status: ListenStatusTimeout}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Manager) adjustListeners(channel string, delta int) error {
	return m.state.WriteChannels(func(doc *filestate.ChannelsDoc) error {
		rec := doc.Get(channel)
		rec.Listeners += delta
		if rec.Listeners < 0 {
			rec.Listeners = 0
		}
		doc.Set(channel, rec)
		return nil
	})
}

func (m *Manager) popOldest(channel string) (*Message, bool, error) {
	var popped *filestate.RawMessage
	err := m.state.WriteChannels(func(doc *filestate.ChannelsDoc) error {
		rec := doc.Get(channel)
		if len(rec.Pending) == 0 {
			return nil
		}
		popped = &rec.Pending[0]
		rec.Pending = rec.Pending[1:]
		rec.Info.PendingMessages = len(rec.Pending)
		doc.Set(channel, rec)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if popped == nil {
		return nil, false, nil
	}
	msg, err := unmarshalMessage(*popped)
	if err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

// History returns the last limit messages for channel, most recent last.
func (m *Manager) History(channel string, limit int) ([]*Message, error) {
	var out []*Message
	err := m.state.ReadHistory(func(doc *filestate.HistoryDoc) error {
		entries := doc.Get(channel)
		if limit > 0 && len(entries) > limit {
			entries = entries[len(entries)-limit:]
		}
		for _, raw := range entries {
			msg, err := unmarshalMessage(raw)
			if err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	return out, err
}

// Clear empties both pending and history for channel while retaining the
// channel record itself.
func (m *Manager) Clear(channel string) error {
	if err := m.state.WriteChannels(func(doc *filestate.ChannelsDoc) error {
		rec := doc.Get(channel)
		rec.Pending = nil
		rec.Info.PendingMessages = 0
		doc.Set(channel, rec)
		return nil
	}); err != nil {
		return fmt.Errorf("channels: clear pending: %w", err)
	}
	return m.state.WriteHistory(func(doc *filestate.HistoryDoc) error {
		doc.Set(channel, nil)
		return nil
	})
}

// ActiveChannel is one row of ActiveChannels' result.
type ActiveChannel struct {
	Name string
	Info ChannelInfo
}

// ActiveChannels enumerates every channel's metadata.
func (m *Manager) ActiveChannels() ([]ActiveChannel, error) {
	var out []ActiveChannel
	err := m.state.ReadChannels(func(doc *filestate.ChannelsDoc) error {
		for name, rec := range doc.All() {
			out = append(out, ActiveChannel{
				Name: name,
				Info: ChannelInfo{
					TotalMessagesSent: rec.Info.TotalMessagesSent,
					PendingMessages:   rec.Info.PendingMessages,
					DroppedMessages:   rec.Info.DroppedMessages,
					LastActivity:      rec.Info.LastActivity,
				},
			})
		}
		return nil
	})
	return out, err
}

func replyChannelName(channel, messageID string) string {
	return fmt.Sprintf("%s:reply:%s", channel, messageID)
}

// SendWithReply sends content on channel, then listens on the dedicated
// reply channel for replyTimeout.
func (m *Manager) SendWithReply(ctx context.Context, channel string, content any, metadata map[string]any, senderID string, replyTimeout time.Duration) (*Message, *ListenResult, error) {
	msg, err := m.Send(ctx, channel, content, metadata, senderID)
	if err != nil {
		return nil, nil, err
	}
	result, err := m.Listen(ctx, replyChannelName(channel, msg.ID), replyTimeout)
	if err != nil {
		return msg, nil, err
	}
	return msg, result, nil
}

// SendReply sends content on the reply channel derived from
// originalMessageID and replyChannel.
func (m *Manager) SendReply(ctx context.Context, originalMessageID, replyChannel string, content any, metadata map[string]any, senderID string) (*Message, error) {
	return m.Send(ctx, replyChannelName(replyChannel, originalMessageID), content, metadata, senderID)
}

// Cleanup removes channels whose last activity exceeds inactiveSince and
// whose listener count is zero.
func (m *Manager) Cleanup(inactiveSince time.Duration) (int, error) {
	cutoff := time.Now().Add(-inactiveSince)
	var stale []string
	err := m.state.WriteChannels(func(doc *filestate.ChannelsDoc) error {
		for name, rec := range doc.All() {
			if rec.Listeners == 0 && rec.Info.LastActivity.Before(cutoff) {
				doc.Delete(name)
				stale = append(stale, name)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	err = m.state.WriteHistory(func(doc *filestate.HistoryDoc) error {
		for _, name := range stale {
			doc.Delete(name)
		}
		return nil
	})
	return len(stale), err
}

func mustMarshalMessage(msg *Message) filestate.RawMessage {
	b, err := json.Marshal(msg)
	if err != nil {
		panic(fmt.Sprintf("channels: marshal message: %v", err))
	}
	return filestate.RawMessage(b)
}

func unmarshalMessage(raw filestate.RawMessage) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("channels: unmarshal message: %w", err)
	}
	return &msg, nil
}
