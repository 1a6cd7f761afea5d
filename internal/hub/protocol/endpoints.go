package protocol

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bdobrica/Ruriko/internal/hub/channels"
	"github.com/bdobrica/Ruriko/internal/hub/timers"
	"github.com/bdobrica/Ruriko/internal/hub/usertools"
)

// Dependencies bundles the subsystem managers the registered methods
// delegate to.
type Dependencies struct {
	Tools       *usertools.Manager
	Credentials *usertools.CredentialStore
	Channels    *channels.Manager
	Timers      *timers.Manager
}

// RegisterHubMethods binds every Protocol endpoint named in the external
// interface to s, delegating to deps.
func RegisterHubMethods(s *Server, deps Dependencies) {
	registerToolMethods(s, deps)
	registerCredentialMethods(s, deps)
	registerChannelMethods(s, deps)
	registerTimerMethods(s, deps)
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, NewHandlerError(CodeInvalidParams, "invalid params: "+err.Error())
	}
	return v, nil
}

// --- tool catalogue & installation ---

func registerToolMethods(s *Server, deps Dependencies) {
	s.Register("get_available_tools", func(ctx context.Context, _ json.RawMessage) (any, error) {
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		return deps.Tools.GetCatalogue(ctx, identity.UserID)
	})

	s.Register("get_tool_metadata", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName string `json:"tool_name"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		catalogue, err := deps.Tools.GetCatalogue(ctx, identity.UserID)
		if err != nil {
			return nil, err
		}
		for _, entry := range catalogue {
			if entry.Descriptor.ToolName == a.ToolName {
				return entry, nil
			}
		}
		return nil, NewHandlerError(CodeInvalidParams, "unknown tool "+a.ToolName)
	})

	s.Register("add_tool", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName string         `json:"tool_name"`
			Config   map[string]any `json:"config"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		if err := deps.Tools.AddTool(ctx, identity.UserID, a.ToolName, a.Config); err != nil {
			return nil, NewHandlerError(CodeInvalidParams, err.Error())
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("remove_tool", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName string `json:"tool_name"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		if err := deps.Tools.RemoveTool(ctx, identity.UserID, a.ToolName); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("list_my_tools", func(ctx context.Context, _ json.RawMessage) (any, error) {
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		return deps.Tools.ListMyTools(ctx, identity.UserID)
	})

	s.Register("get_tool_config", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName string `json:"tool_name"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		return deps.Tools.GetToolConfig(ctx, identity.UserID, a.ToolName)
	})

	s.Register("update_tool_config", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName string         `json:"tool_name"`
			Partial  map[string]any `json:"partial"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		if err := deps.Tools.UpdateToolConfig(ctx, identity.UserID, a.ToolName, a.Partial); err != nil {
			return nil, NewHandlerError(CodeInvalidParams, err.Error())
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("get_missing_config", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName string `json:"tool_name"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		missing, err := deps.Tools.GetMissingConfig(ctx, identity.UserID, a.ToolName)
		if err != nil {
			return nil, err
		}
		return map[string]any{"missing": missing}, nil
	})
}

// --- credentials ---

func registerCredentialMethods(s *Server, deps Dependencies) {
	s.Register("store_credential", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName     string `json:"tool_name"`
			Provider     string `json:"provider"`
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			Scopes       string `json:"scopes"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		cred := usertools.Credential{
			ToolName:     a.ToolName,
			Provider:     a.Provider,
			AccessToken:  a.AccessToken,
			RefreshToken: a.RefreshToken,
			Scopes:       a.Scopes,
		}
		if err := deps.Credentials.StoreCredential(ctx, identity.UserID, a.ToolName, a.Provider, cred); err != nil {
			return nil, NewHandlerError(CodeInternalError, err.Error())
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("get_credential", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName string `json:"tool_name"`
			Provider string `json:"provider"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		return deps.Credentials.GetCredential(ctx, identity.UserID, a.ToolName, a.Provider)
	})

	s.Register("list_credentials", func(ctx context.Context, _ json.RawMessage) (any, error) {
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		return deps.Credentials.ListCredentials(ctx, identity.UserID)
	})

	s.Register("delete_credential", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ToolName string `json:"tool_name"`
			Provider string `json:"provider"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		if err := deps.Credentials.DeleteCredential(ctx, identity.UserID, a.ToolName, a.Provider); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})
}

// --- inter-agent channels ---

func registerChannelMethods(s *Server, deps Dependencies) {
	s.Register("listen_for_message", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Channel string  `json:"channel"`
			Timeout float64 `json:"timeout"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		timeout := time.Duration(a.Timeout * float64(time.Second))
		return deps.Channels.Listen(ctx, a.Channel, timeout)
	})

	s.Register("send_message", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Channel       string         `json:"channel"`
			Content       any            `json:"content"`
			WaitForReply  bool           `json:"wait_for_reply"`
			ReplyTimeout  float64        `json:"reply_timeout"`
			Metadata      map[string]any `json:"metadata"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		if a.WaitForReply {
			timeout := time.Duration(a.ReplyTimeout * float64(time.Second))
			msg, result, err := deps.Channels.SendWithReply(ctx, a.Channel, a.Content, a.Metadata, identity.UserID, timeout)
			if err != nil {
				return nil, err
			}
			return map[string]any{"message": msg, "reply": result}, nil
		}
		msg, err := deps.Channels.Send(ctx, a.Channel, a.Content, a.Metadata, identity.UserID)
		if err != nil {
			return nil, err
		}
		return msg, nil
	})

	s.Register("send_reply", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			OriginalMessageID string         `json:"original_message_id"`
			ReplyChannel      string         `json:"reply_channel"`
			Content           any            `json:"content"`
			Metadata          map[string]any `json:"metadata"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		identity, err := RequireIdentity(ctx)
		if err != nil {
			return nil, err
		}
		return deps.Channels.SendReply(ctx, a.OriginalMessageID, a.ReplyChannel, a.Content, a.Metadata, identity.UserID)
	})

	s.Register("get_channel_history", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Channel string `json:"channel"`
			Limit   int    `json:"limit"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		return deps.Channels.History(a.Channel, a.Limit)
	})

	s.Register("clear_channel", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Channel string `json:"channel"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		if err := deps.Channels.Clear(a.Channel); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("list_active_channels", func(ctx context.Context, _ json.RawMessage) (any, error) {
		return deps.Channels.ActiveChannels()
	})
}

// --- timers ---

func registerTimerMethods(s *Server, deps Dependencies) {
	s.Register("start_timer", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Duration float64 `json:"duration"`
			Interval float64 `json:"interval"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		interval := time.Duration(a.Interval * float64(time.Second))
		return deps.Timers.StartTimer(ctx, time.Duration(a.Duration*float64(time.Second)), interval)
	})

	s.Register("get_timer_status", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ID string `json:"id"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		return deps.Timers.GetStatus(a.ID)
	})

	s.Register("cancel_timer", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			ID string `json:"id"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		if err := deps.Timers.CancelTimer(a.ID); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("list_active_timers", func(ctx context.Context, _ json.RawMessage) (any, error) {
		return deps.Timers.ListActiveTimers(), nil
	})

	s.Register("cleanup_timers", func(ctx context.Context, _ json.RawMessage) (any, error) {
		return map[string]int{"removed": deps.Timers.CleanupTimers()}, nil
	})

	s.Register("wait_seconds", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Duration float64 `json:"duration"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		if err := deps.Timers.WaitSeconds(ctx, a.Duration); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("wait_minutes", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Duration float64 `json:"duration"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		if err := deps.Timers.WaitMinutes(ctx, a.Duration); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("wait_until_timestamp", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Timestamp time.Time `json:"timestamp"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		if err := deps.Timers.WaitUntilTimestamp(ctx, a.Timestamp); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil
	})

	s.Register("wait_with_progress", func(ctx context.Context, raw json.RawMessage) (any, error) {
		type args struct {
			Duration float64 `json:"duration"`
			Interval float64 `json:"interval"`
		}
		a, err := decodeParams[args](raw)
		if err != nil {
			return nil, err
		}
		ch, err := deps.Timers.WaitWithProgress(ctx,
			time.Duration(a.Duration*float64(time.Second)),
			time.Duration(a.Interval*float64(time.Second)))
		if err != nil {
			return nil, err
		}
		var updates []timers.ProgressUpdate
		for u := range ch {
			updates = append(updates, u)
		}
		return map[string]any{"updates": updates}, nil
	})
}
