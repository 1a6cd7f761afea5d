package filestate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestWriteChannels_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	s1 := New(dir)

	err := s1.WriteChannels(func(doc *ChannelsDoc) error {
		rec := doc.Get("ops")
		rec.Listeners = 2
		rec.Pending = append(rec.Pending, json.RawMessage(`{"id":"m1"}`))
		doc.Set("ops", rec)
		return nil
	})
	if err != nil {
		t.Fatalf("WriteChannels: %v", err)
	}

	s2 := New(dir)
	var got ChannelRecord
	err = s2.ReadChannels(func(doc *ChannelsDoc) error {
		got = doc.Get("ops")
		return nil
	})
	if err != nil {
		t.Fatalf("ReadChannels: %v", err)
	}
	if got.Listeners != 2 || len(got.Pending) != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestReadChannels_TreatsCorruptFileAsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "channels.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s := New(dir)
	var sawEmpty bool
	err := s.ReadChannels(func(doc *ChannelsDoc) error {
		sawEmpty = len(doc.All()) == 0
		return nil
	})
	if err != nil {
		t.Fatalf("ReadChannels on corrupt file: %v", err)
	}
	if !sawEmpty {
		t.Fatal("expected corrupt document to read back as empty state")
	}
}

func TestWriteChannels_SerializesConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WriteChannels(func(doc *ChannelsDoc) error {
				rec := doc.Get("counter")
				rec.Info.TotalMessagesSent++
				doc.Set("counter", rec)
				return nil
			})
			if err != nil {
				t.Errorf("WriteChannels: %v", err)
			}
		}()
	}
	wg.Wait()

	var final ChannelRecord
	if err := s.ReadChannels(func(doc *ChannelsDoc) error {
		final = doc.Get("counter")
		return nil
	}); err != nil {
		t.Fatalf("ReadChannels: %v", err)
	}
	if final.Info.TotalMessagesSent != n {
		t.Fatalf("expected %d increments, got %d", n, final.Info.TotalMessagesSent)
	}
}

func TestWriteHistory_BoundedByCaller(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	err := s.WriteHistory(func(doc *HistoryDoc) error {
		doc.Set("ops", []RawMessage{json.RawMessage(`{"id":"1"}`), json.RawMessage(`{"id":"2"}`)})
		return nil
	})
	if err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}

	var entries []RawMessage
	if err := s.ReadHistory(func(doc *HistoryDoc) error {
		entries = doc.Get("ops")
		return nil
	}); err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}
