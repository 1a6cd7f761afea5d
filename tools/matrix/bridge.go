// Package matrix implements the "matrix" reference tool: a bridge that
// relays a hub coordination channel onto a Matrix room, so cooperating
// agents can rendezvous through a chat room instead of a shared
// filesystem. The wire handling is adapted from the Gitai and Ruriko
// Matrix clients' join/sync/send conventions.
package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/bdobrica/Ruriko/internal/hub/channels"
)

// Config holds the per-user parameters read from the tool's config_schema.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	RoomID      string
	Channel     string
}

// Bridge wraps a Matrix client and relays messages between RoomID and
// Channel in both directions.
type Bridge struct {
	mxc     *mautrix.Client
	cfg     Config
	chans   *channels.Manager
	stopCh  chan struct{}
	stopped chan struct{}
}

// New creates a Bridge but does not start syncing or relaying yet.
func New(cfg Config, mgr *channels.Manager) (*Bridge, error) {
	mxc, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("matrix: create client: %w", err)
	}
	return &Bridge{
		mxc:     mxc,
		cfg:     cfg,
		chans:   mgr,
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Start joins RoomID, begins the sync loop (room → channel), and spawns
// the channel → room relay loop. It returns once the room join has been
// attempted; both loops continue running in the background until Stop.
func (b *Bridge) Start(ctx context.Context) error {
	syncer, ok := b.mxc.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("matrix: unexpected syncer type")
	}
	syncer.OnEventType(event.EventMessage, func(_ context.Context, evt *event.Event) {
		if evt.Sender == id.UserID(b.cfg.UserID) {
			return
		}
		content := evt.Content.AsMessage()
		if content == nil {
			return
		}
		if _, err := b.chans.Send(ctx, b.cfg.Channel, content.Body, map[string]any{
			"matrix_event_id": evt.ID.String(),
			"matrix_room_id":  b.cfg.RoomID,
		}, string(evt.Sender)); err != nil {
			slog.Error("matrix: relay room message to channel failed", "err", err)
		}
	})

	if _, err := b.mxc.JoinRoomByID(ctx, id.RoomID(b.cfg.RoomID)); err != nil {
		slog.Warn("matrix: join room result", "room", b.cfg.RoomID, "err", err)
	}

	go b.syncLoop()
	go b.relayChannelToRoom(ctx)
	return nil
}

// syncLoop runs mxc.Sync with exponential backoff, mirroring the agent
// clients' reconnect behavior.
func (b *Bridge) syncLoop() {
	const backoffMax = 5 * time.Minute
	backoff := 2 * time.Second
	for {
		if err := b.mxc.Sync(); err != nil {
			select {
			case <-b.stopCh:
				close(b.stopped)
				return
			default:
			}
			slog.Error("matrix: sync error; reconnecting", "err", err, "backoff", backoff)
			select {
			case <-b.stopCh:
				close(b.stopped)
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
			continue
		}
		select {
		case <-b.stopCh:
			close(b.stopped)
			return
		default:
			backoff = 2 * time.Second
		}
	}
}

// relayChannelToRoom listens on Channel and forwards every message it
// pops to RoomID as a plain-text event, until Stop is called.
func (b *Bridge) relayChannelToRoom(ctx context.Context) {
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		result, err := b.chans.Listen(ctx, b.cfg.Channel, 5*time.Second)
		if err != nil {
			slog.Error("matrix: listen on bridged channel failed", "err", err)
			return
		}
		if result.Status != channels.ListenStatusOK || result.Message == nil {
			continue
		}

		text := fmt.Sprintf("%v", result.Message.Content)
		if _, err := b.mxc.SendText(ctx, id.RoomID(b.cfg.RoomID), text); err != nil {
			slog.Error("matrix: relay channel message to room failed", "err", err)
		}
	}
}

// Stop halts both relay loops and the sync loop.
func (b *Bridge) Stop() {
	close(b.stopCh)
	b.mxc.StopSync()
	<-b.stopped
}
