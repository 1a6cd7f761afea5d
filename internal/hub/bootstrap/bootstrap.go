// Package bootstrap drives the Hub through its startup state machine and
// holds the process-wide RuntimeConfig singleton.
package bootstrap

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	hcrypto "github.com/bdobrica/Ruriko/common/crypto"
	"github.com/bdobrica/Ruriko/internal/hub/store"
)

// AppMode gates which session validator and setup-wizard branch is active.
type AppMode string

const (
	ModeUnconfigured AppMode = "unconfigured"
	ModeLocal        AppMode = "local"
	ModeWorkOS       AppMode = "workos"
)

// State is a position in the bootstrap finite state machine.
type State string

const (
	StateNoDatabase     State = "NO_DATABASE"
	StateEmptyDatabase  State = "EMPTY_DATABASE"
	StateUnconfigured   State = "UNCONFIGURED"
	StateConfigured     State = "CONFIGURED"
)

// config keys persisted in system_config.
const (
	keyAppMode       = "app_mode"
	keySalt          = "encryption_salt"
	keyHost          = "host"
	keyPort          = "port"
	keyAllowedOrigins = "allowed_origins"
	keyHSTS          = "hsts_enabled"
	keyCSPReportURI  = "csp_report_uri"
	keySuperAdmins   = "super_admin_emails"
	keyCookiePassword = "cookie_password"
	keyDatabasePath  = "database_path"
)

// cacheTTL is how long a loaded RuntimeConfig snapshot is trusted before a
// re-read from the store is forced.
const cacheTTL = 60 * time.Second

// RuntimeConfig is the immutable snapshot of operator-tunable settings
// loaded from system_config at bootstrap and re-read on cache expiry.
type RuntimeConfig struct {
	AppMode        AppMode
	Host           string
	Port           int
	AllowedOrigins []string
	HSTSEnabled    bool
	CSPReportURI   string
	SuperAdmins    []string
	CookiePassword string
	EncryptionKey  []byte
}

// EnvSeed carries the process-environment values consulted only during
// first-boot import, never again afterward.
type EnvSeed struct {
	Host               string
	Port               int
	AllowedOrigins     []string
	HSTSEnabled        bool
	CSPReportURI       string
	SuperAdminEmails   []string
	SSOClientID        string
	SSOClientSecret    string
	OAuthClientConfigs map[string]string
}

// Bootstrapper owns the store handle and the cached RuntimeConfig.
type Bootstrapper struct {
	store *store.Store

	mu       sync.Mutex
	loadedAt time.Time
	cfg      *RuntimeConfig
}

// New wraps an already-opened, already-migrated store. The caller is
// responsible for store.New's pre-flight connectivity check and its
// fatal-on-failure exit.
func New(s *store.Store) *Bootstrapper {
	return &Bootstrapper{store: s}
}

// Run executes steps 3-5 of the bootstrap routine (schema creation and
// migration already happened inside store.New): seed the encryption salt
// on first boot, import environment values on first boot only, and load
// the initial RuntimeConfig snapshot. It returns the resulting State.
func (b *Bootstrapper) Run(ctx context.Context, seed EnvSeed) (State, error) {
	state, err := b.detectState(ctx)
	if err != nil {
		return "", fmt.Errorf("bootstrap: detect state: %w", err)
	}

	if state == StateEmptyDatabase {
		slog.Info("bootstrap: empty database detected, seeding salt and importing environment")
		if err := b.seedSalt(ctx); err != nil {
			return "", fmt.Errorf("bootstrap: seed salt: %w", err)
		}
		if err := b.importEnv(ctx, seed); err != nil {
			return "", fmt.Errorf("bootstrap: import environment: %w", err)
		}
		if err := b.store.SetConfig(ctx, keyAppMode, string(ModeUnconfigured), false); err != nil {
			return "", fmt.Errorf("bootstrap: set app_mode: %w", err)
		}
		state = StateUnconfigured
	}

	if _, err := b.Load(ctx); err != nil {
		return "", fmt.Errorf("bootstrap: load runtime config: %w", err)
	}

	return state, nil
}

// detectState inspects system_config to classify where in the FSM the
// store currently sits. NO_DATABASE is never returned here: by the time a
// *store.Store exists, migrations have already run, so the only remaining
// distinction is EMPTY_DATABASE vs UNCONFIGURED vs CONFIGURED.
func (b *Bootstrapper) detectState(ctx context.Context) (State, error) {
	entry, err := b.store.GetConfig(ctx, keyAppMode)
	if errors.Is(err, store.ErrConfigNotFound) {
		return StateEmptyDatabase, nil
	}
	if err != nil {
		return "", err
	}

	switch AppMode(entry.Value) {
	case ModeUnconfigured:
		return StateUnconfigured, nil
	case ModeLocal, ModeWorkOS:
		return StateConfigured, nil
	default:
		return "", fmt.Errorf("bootstrap: unknown app_mode %q", entry.Value)
	}
}

func (b *Bootstrapper) seedSalt(ctx context.Context) error {
	salt := make([]byte, hcrypto.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	return b.store.SetConfig(ctx, keySalt, string(salt), true)
}

// importEnv persists EnvSeed values into system_config. It is a no-op for
// any field left at its zero value, so callers can pass a partially
// populated seed without clobbering sensible defaults.
func (b *Bootstrapper) importEnv(ctx context.Context, seed EnvSeed) error {
	set := func(key, value string, secret bool) error {
		if value == "" {
			return nil
		}
		return b.store.SetConfig(ctx, key, value, secret)
	}

	if err := set(keyHost, seed.Host, false); err != nil {
		return err
	}
	if seed.Port != 0 {
		if err := set(keyPort, strconv.Itoa(seed.Port), false); err != nil {
			return err
		}
	}
	if len(seed.AllowedOrigins) > 0 {
		if err := set(keyAllowedOrigins, strings.Join(seed.AllowedOrigins, ","), false); err != nil {
			return err
		}
	}
	if err := b.store.SetConfig(ctx, keyHSTS, strconv.FormatBool(seed.HSTSEnabled), false); err != nil {
		return err
	}
	if err := set(keyCSPReportURI, seed.CSPReportURI, false); err != nil {
		return err
	}
	if len(seed.SuperAdminEmails) > 0 {
		if err := set(keySuperAdmins, strings.Join(seed.SuperAdminEmails, ","), false); err != nil {
			return err
		}
	}
	if err := set("sso_client_id", seed.SSOClientID, false); err != nil {
		return err
	}
	if err := set("sso_client_secret", seed.SSOClientSecret, true); err != nil {
		return err
	}
	for k, v := range seed.OAuthClientConfigs {
		if err := set("oauth_client."+k, v, true); err != nil {
			return err
		}
	}

	cookiePassword := make([]byte, 32)
	if _, err := rand.Read(cookiePassword); err != nil {
		return fmt.Errorf("generate cookie password: %w", err)
	}
	return b.store.SetConfig(ctx, keyCookiePassword, string(cookiePassword), true)
}

// Load reads system_config and rebuilds the RuntimeConfig snapshot,
// unconditionally refreshing the cache. Most callers want Get instead.
func (b *Bootstrapper) Load(ctx context.Context) (*RuntimeConfig, error) {
	entries, err := b.store.ListConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	kv := make(map[string]string, len(entries))
	for _, e := range entries {
		kv[e.Key] = e.Value
	}

	cfg := &RuntimeConfig{
		AppMode:        AppMode(kv[keyAppMode]),
		Host:           kv[keyHost],
		CSPReportURI:   kv[keyCSPReportURI],
		CookiePassword: kv[keyCookiePassword],
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if p, ok := kv[keyPort]; ok && p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse port %q: %w", p, err)
		}
		cfg.Port = port
	} else {
		cfg.Port = 8443
	}
	if origins, ok := kv[keyAllowedOrigins]; ok && origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
	if hsts, ok := kv[keyHSTS]; ok {
		cfg.HSTSEnabled, _ = strconv.ParseBool(hsts)
	}
	if admins, ok := kv[keySuperAdmins]; ok && admins != "" {
		cfg.SuperAdmins = strings.Split(admins, ",")
	}

	salt := []byte(kv[keySalt])
	if len(salt) == hcrypto.SaltSize {
		identity, err := hcrypto.MachineIdentity()
		if err != nil {
			return nil, fmt.Errorf("resolve machine identity: %w", err)
		}
		cfg.EncryptionKey = hcrypto.DeriveKey(identity, salt)
	}

	b.mu.Lock()
	b.cfg = cfg
	b.loadedAt = time.Now()
	b.mu.Unlock()

	return cfg, nil
}

// Get returns the cached RuntimeConfig, transparently refreshing it once
// cacheTTL has elapsed since the last Load.
func (b *Bootstrapper) Get(ctx context.Context) (*RuntimeConfig, error) {
	b.mu.Lock()
	cfg, loadedAt := b.cfg, b.loadedAt
	b.mu.Unlock()

	if cfg != nil && time.Since(loadedAt) < cacheTTL {
		return cfg, nil
	}
	return b.Load(ctx)
}

// Invalidate forces the next Get to re-read system_config. Called by the
// config API after any write to a RuntimeConfig-backing key.
func (b *Bootstrapper) Invalidate() {
	b.mu.Lock()
	b.loadedAt = time.Time{}
	b.mu.Unlock()
}

// Configure transitions UNCONFIGURED to CONFIGURED by recording the
// chosen app_mode. Called by the setup wizard's final step.
func (b *Bootstrapper) Configure(ctx context.Context, mode AppMode) error {
	if mode != ModeLocal && mode != ModeWorkOS {
		return fmt.Errorf("bootstrap: invalid app_mode %q", mode)
	}
	if err := b.store.SetConfig(ctx, keyAppMode, string(mode), false); err != nil {
		return err
	}
	b.Invalidate()
	_, err := b.Load(ctx)
	return err
}

// SetNetworkConfig persists the host/port/CORS/HSTS settings the setup
// wizard's network-config step collects, invalidating the cache so the
// next Get reflects them.
func (b *Bootstrapper) SetNetworkConfig(ctx context.Context, host string, port int, allowedOrigins []string, hstsEnabled bool) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("bootstrap: invalid-port-range: %d", port)
	}
	if err := b.store.SetConfig(ctx, keyHost, host, false); err != nil {
		return err
	}
	if err := b.store.SetConfig(ctx, keyPort, strconv.Itoa(port), false); err != nil {
		return err
	}
	if err := b.store.SetConfig(ctx, keyAllowedOrigins, strings.Join(allowedOrigins, ","), false); err != nil {
		return err
	}
	if err := b.store.SetConfig(ctx, keyHSTS, strconv.FormatBool(hstsEnabled), false); err != nil {
		return err
	}
	b.Invalidate()
	_, err := b.Load(ctx)
	return err
}

// SetDatabasePath records the operator-supplied database file path for
// display in the setup wizard; it does not reopen the store, which is
// bound once at process startup.
func (b *Bootstrapper) SetDatabasePath(ctx context.Context, path string) error {
	return b.store.SetConfig(ctx, keyDatabasePath, path, false)
}
