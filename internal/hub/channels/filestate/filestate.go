// Package filestate provides advisory-locked, atomic read-modify-write
// access to the two JSON documents backing the channels subsystem:
// channels.json (live queues and listener counts) and history.json
// (bounded per-channel message history). A gofrs/flock lock file guards
// each document against concurrent writers across processes; renames are
// used for atomic replacement so a crash mid-write never corrupts the
// document readers see.
package filestate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// RawMessage is an undecoded JSON message body, kept opaque at this layer
// so filestate has no dependency on the channels package's Message type.
type RawMessage = json.RawMessage

// ChannelInfo mirrors the channels package's ChannelInfo for persistence.
type ChannelInfo struct {
	TotalMessagesSent int64     `json:"total_messages_sent"`
	PendingMessages   int       `json:"pending_messages"`
	DroppedMessages   int64     `json:"dropped_messages"`
	LastActivity      time.Time `json:"last_activity"`
}

// ChannelRecord is one channel's live queue state.
type ChannelRecord struct {
	Pending   []RawMessage `json:"pending"`
	Listeners int          `json:"listeners"`
	Info      ChannelInfo  `json:"info"`
}

// Store owns the on-disk location of channels.json and history.json.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, which is created on first write if
// absent.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) channelsPath() string { return filepath.Join(s.dir, "channels.json") }
func (s *Store) historyPath() string  { return filepath.Join(s.dir, "history.json") }
func (s *Store) lockPath(name string) string { return filepath.Join(s.dir, name+".lock") }

func (s *Store) withLock(name string, fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	lock := flock.New(s.lockPath(name))
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock() //nolint:errcheck
	return fn()
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	// A torn or corrupt document is treated as empty state rather than a
	// hard failure, so a crashed writer never wedges subsequent reads.
	if err := json.Unmarshal(b, v); err != nil {
		return nil
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ChannelsDoc is the decoded contents of channels.json: channel name to
// live queue state.
type ChannelsDoc struct {
	channels map[string]ChannelRecord
}

// Get returns the record for name, or a zero-value record if absent.
func (d *ChannelsDoc) Get(name string) ChannelRecord {
	if d.channels == nil {
		return ChannelRecord{}
	}
	return d.channels[name]
}

// Set stores rec under name.
func (d *ChannelsDoc) Set(name string, rec ChannelRecord) {
	if d.channels == nil {
		d.channels = make(map[string]ChannelRecord)
	}
	d.channels[name] = rec
}

// Delete removes name's record entirely.
func (d *ChannelsDoc) Delete(name string) {
	delete(d.channels, name)
}

// All returns every channel record keyed by name.
func (d *ChannelsDoc) All() map[string]ChannelRecord {
	return d.channels
}

// HistoryDoc is the decoded contents of history.json: channel name to its
// bounded message history, oldest first.
type HistoryDoc struct {
	history map[string][]RawMessage
}

// Get returns the history slice for name, or nil if absent.
func (d *HistoryDoc) Get(name string) []RawMessage {
	return d.history[name]
}

// Set replaces the history slice for name.
func (d *HistoryDoc) Set(name string, entries []RawMessage) {
	if d.history == nil {
		d.history = make(map[string][]RawMessage)
	}
	d.history[name] = entries
}

// Delete removes name's history entirely.
func (d *HistoryDoc) Delete(name string) {
	delete(d.history, name)
}

// ReadChannels loads channels.json under a shared advisory lock and passes
// it to fn for inspection; mutations made by fn are discarded.
func (s *Store) ReadChannels(fn func(*ChannelsDoc) error) error {
	return s.withLock("channels", func() error {
		doc := &ChannelsDoc{channels: make(map[string]ChannelRecord)}
		if err := readJSON(s.channelsPath(), &doc.channels); err != nil {
			return err
		}
		return fn(doc)
	})
}

// WriteChannels loads channels.json, passes it to fn for mutation, then
// atomically persists the result, all under a single exclusive advisory
// lock so concurrent writers never interleave.
func (s *Store) WriteChannels(fn func(*ChannelsDoc) error) error {
	return s.withLock("channels", func() error {
		doc := &ChannelsDoc{channels: make(map[string]ChannelRecord)}
		if err := readJSON(s.channelsPath(), &doc.channels); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		return writeJSONAtomic(s.channelsPath(), doc.channels)
	})
}

// ReadHistory loads history.json under a shared advisory lock.
func (s *Store) ReadHistory(fn func(*HistoryDoc) error) error {
	return s.withLock("history", func() error {
		doc := &HistoryDoc{history: make(map[string][]RawMessage)}
		if err := readJSON(s.historyPath(), &doc.history); err != nil {
			return err
		}
		return fn(doc)
	})
}

// WriteHistory loads history.json, passes it to fn for mutation, then
// atomically persists the result.
func (s *Store) WriteHistory(fn func(*HistoryDoc) error) error {
	return s.withLock("history", func() error {
		doc := &HistoryDoc{history: make(map[string][]RawMessage)}
		if err := readJSON(s.historyPath(), &doc.history); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		return writeJSONAtomic(s.historyPath(), doc.history)
	})
}
