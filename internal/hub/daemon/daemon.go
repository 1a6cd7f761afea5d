// Package daemon assembles every Hub subsystem into a running process:
// store, bootstrap, registry, instance manager, Protocol server, and REST
// API. It backs both cmd/hubd (the dedicated serving binary) and
// cmd/hubctl's "hub" subcommand, so the two entrypoints never drift.
//
// All configuration is loaded from environment variables.
//
// Optional environment variables:
//
//	HUB_DB_PATH       - path to the SQLite database (default: hub.db)
//	HUB_TOOLS_DIR     - directory scanned for tool descriptor.yaml files (default: tools)
//	HUB_TRANSPORT     - "stdio" (default) or "http"
//	HUB_HTTP_ADDR     - listen address for the HTTP transport (default: :8443)
//	HUB_SUPER_ADMINS  - comma-separated super-admin emails imported on first boot
//	DOCKER_ENABLE     - "true" to sandbox tool instances in containers instead of in-process
//	DOCKER_NETWORK    - bridge network name for the Docker runtime (default: hub-tools)
//	LOG_LEVEL         - "debug", "info", "warn", "error" (default: "info")
//	LOG_FORMAT        - "text" or "json" (default: "text")
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bdobrica/Ruriko/common/environment"
	"github.com/bdobrica/Ruriko/common/version"
	"github.com/bdobrica/Ruriko/internal/hub/audit"
	"github.com/bdobrica/Ruriko/internal/hub/auth"
	"github.com/bdobrica/Ruriko/internal/hub/bootstrap"
	"github.com/bdobrica/Ruriko/internal/hub/channels"
	"github.com/bdobrica/Ruriko/internal/hub/httpapi"
	"github.com/bdobrica/Ruriko/internal/hub/instances"
	"github.com/bdobrica/Ruriko/internal/hub/protocol"
	"github.com/bdobrica/Ruriko/internal/hub/registry"
	"github.com/bdobrica/Ruriko/internal/hub/store"
	"github.com/bdobrica/Ruriko/internal/hub/timers"
	"github.com/bdobrica/Ruriko/internal/hub/usertools"
)

// Run opens the store, drives the bootstrap state machine, discovers
// tools, and serves until ctx is cancelled. It returns nil on a clean
// shutdown (including a restart request) and a non-nil error on any
// unrecoverable startup or serving failure.
func Run(ctx context.Context) error {
	dbPath := environment.StringOr("HUB_DB_PATH", "hub.db")
	s, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	bs := bootstrap.New(s)
	seed := bootstrap.EnvSeed{
		Host:             environment.StringOr("HUB_HOST", "0.0.0.0"),
		Port:             environment.IntOr("HUB_PORT", 8443),
		AllowedOrigins:   environment.StringSliceOr("HUB_ALLOWED_ORIGINS", nil),
		HSTSEnabled:      environment.BoolOr("HUB_HSTS_ENABLED", false),
		CSPReportURI:     os.Getenv("HUB_CSP_REPORT_URI"),
		SuperAdminEmails: environment.StringSliceOr("HUB_SUPER_ADMINS", nil),
		SSOClientID:      os.Getenv("WORKOS_CLIENT_ID"),
		SSOClientSecret:  os.Getenv("WORKOS_CLIENT_SECRET"),
	}
	state, err := bs.Run(ctx, seed)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	slog.Info("bootstrap complete", "state", state)

	running, err := bs.Get(ctx)
	if err != nil {
		return fmt.Errorf("load runtime config: %w", err)
	}

	reg := registry.New(s)
	toolsDir := environment.StringOr("HUB_TOOLS_DIR", "tools")
	if err := discoverTools(ctx, reg, toolsDir); err != nil {
		slog.Warn("tool discovery incomplete", "err", err)
	}

	tools := usertools.New(s, reg)
	credentials := usertools.NewCredentialStore(s, running.EncryptionKey)
	runtime, err := buildRuntime()
	if err != nil {
		return fmt.Errorf("build instance runtime: %w", err)
	}
	inst := instances.New(runtime)
	chans := channels.New(channels.Config{Dir: environment.StringOr("HUB_CHANNELS_DIR", "channels")})
	tm := timers.New()
	auditLog := audit.New(s)

	retention := audit.NewRetentionWorker(s)
	if err := retention.Start(ctx); err != nil {
		return fmt.Errorf("start audit retention worker: %w", err)
	}
	defer retention.Stop()

	apiKeys := auth.NewAPIKeyIssuer(s)
	localValidator := auth.NewLocalValidator([]byte(running.CookiePassword))
	provisioner := auth.NewProvisioner(s)
	lookupIdentity := identityLookup(s)

	sessions := &auth.SessionResolver{
		Bootstrap:      bs,
		LocalValidator: localValidator,
		SSOValidator:   sessionSSOValidator(running, lookupIdentity),
		APIKeys:        apiKeys,
		LookupIdentity: lookupIdentity,
	}

	protoServer := protocol.NewServer(protocol.LoggingMiddleware())
	protocol.RegisterHubMethods(protoServer, protocol.Dependencies{
		Tools:       tools,
		Credentials: credentials,
		Channels:    chans,
		Timers:      tm,
	})

	restartRequested := make(chan struct{}, 1)
	deps := httpapi.Dependencies{
		Store:       s,
		Bootstrap:   bs,
		Registry:    reg,
		Tools:       tools,
		Credentials: credentials,
		Instances:   inst,
		Channels:    chans,
		Audit:       auditLog,
		Sessions:    sessions,
		APIKeys:     apiKeys,
		Provisioner: provisioner,
		StartedAt:   time.Now().UTC(),
		Running:     running,
		RequestRestart: func() {
			select {
			case restartRequested <- struct{}{}:
			default:
			}
		},
	}
	mux := httpapi.NewMux(deps)

	transport := environment.StringOr("HUB_TRANSPORT", "stdio")
	switch transport {
	case "stdio":
		go serveHTTPInBackground(running, mux)
		slog.Info("serving protocol over stdio", "version", version.Info())
		return protoServer.ServeStdio(ctx, os.Stdin, os.Stdout)
	case "http":
		finalMux := http.NewServeMux()
		finalMux.Handle("/mcp", protoServer.HTTPHandler())
		finalMux.Handle("/", mux)
		addr := environment.StringOr("HUB_HTTP_ADDR", fmt.Sprintf(":%d", running.Port))
		httpServer := &http.Server{Addr: addr, Handler: finalMux}
		slog.Info("serving protocol and rest api over http", "addr", addr, "version", version.Info())
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.ListenAndServe() }()
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-restartRequested:
			slog.Info("restart requested, exiting so the supervisor can relaunch")
			return nil
		}
	default:
		return fmt.Errorf("unknown HUB_TRANSPORT %q", transport)
	}
}

// serveHTTPInBackground exposes the REST API (and setup wizard) on its own
// listener even when the Protocol itself is carried over stdio, so the
// browser-facing setup flow always has somewhere to talk to.
func serveHTTPInBackground(running *bootstrap.RuntimeConfig, mux http.Handler) {
	addr := environment.StringOr("HUB_HTTP_ADDR", fmt.Sprintf(":%d", running.Port))
	srv := &http.Server{Addr: addr, Handler: mux}
	slog.Info("serving rest api", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("rest api server exited", "err", err)
	}
}

func discoverTools(ctx context.Context, reg *registry.Registry, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("tools directory does not exist, skipping discovery", "dir", dir)
			return nil
		}
		return err
	}
	return reg.Discover(ctx, os.DirFS(dir))
}

func buildRuntime() (instances.Runtime, error) {
	if !environment.BoolOr("DOCKER_ENABLE", false) {
		return instances.StubRuntime{}, nil
	}
	network := environment.StringOr("DOCKER_NETWORK", "hub-tools")
	return instances.NewDockerRuntime(network, func(toolName string) string {
		return "hub-tool-" + toolName + ":latest"
	})
}

func identityLookup(s *store.Store) auth.LookupIdentityFunc {
	return func(ctx context.Context, userID string) (*auth.Identity, error) {
		u, err := s.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &auth.Identity{
			UserID:       u.ID,
			Email:        u.Email,
			WorkspaceID:  u.WorkspaceID,
			IsSuperAdmin: u.IsSuperAdmin,
		}, nil
	}
}

// sessionSSOValidator wires the reference SSO implementation when WorkOS
// credentials have been configured; callers in local mode never reach it.
func sessionSSOValidator(running *bootstrap.RuntimeConfig, lookup auth.LookupIdentityFunc) auth.Validator {
	ref := auth.NewReferenceSSO([]byte(running.CookiePassword), auth.LocalSessionTTL, lookup)
	return auth.NewSSOSessionValidator(ref)
}

// ConfigureLogging installs the process-wide slog handler per LOG_LEVEL
// and LOG_FORMAT. Exported so both entrypoints configure logging
// identically before calling Run.
func ConfigureLogging() {
	level := new(slog.LevelVar)
	switch environment.StringOr("LOG_LEVEL", "info") {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if environment.StringOr("LOG_FORMAT", "text") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
