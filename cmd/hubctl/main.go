// Hubctl is the Hub's operator CLI: a thin REST client for the running
// hubd process, plus a "hub" subcommand that runs the daemon in-process
// for local/dev use without a separate binary.
//
// Usage:
//
//	hubctl list                     list the tool catalogue
//	hubctl tool <name>               show one tool's metadata and config schema
//	hubctl openapi <url>             import an OpenAPI document as a tool descriptor (stub)
//	hubctl hub                       run the Hub daemon in this process
//	hubctl info                      print version and runtime info
//	hubctl mcp-config                emit an MCP client config pointing at this hub
//	hubctl version                   print version information
//	hubctl config show|set|reset     inspect or change local CLI configuration
//
// Environment variables:
//
//	HUBCTL_ADDR     - base URL of the running hub's REST API (default: http://localhost:8443)
//	HUBCTL_API_KEY  - bearer token sent as Authorization: Bearer <key>
//	HUBCTL_TIMEOUT  - per-command deadline (default: 10s); exceeding it exits 124
//
// Exit codes: 0 success, 1 fatal, 124 expected timeout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bdobrica/Ruriko/common/environment"
	"github.com/bdobrica/Ruriko/common/version"
	"github.com/bdobrica/Ruriko/internal/hub/daemon"
)

const (
	exitOK      = 0
	exitFatal   = 1
	exitTimeout = 124
)

func main() {
	os.Exit(dispatch(os.Args[1:]))
}

func dispatch(args []string) int {
	if len(args) == 0 {
		usage()
		return exitFatal
	}

	cmd, rest := args[0], args[1:]

	// "hub" runs the daemon in-process and blocks until interrupted; it
	// isn't a REST call so it bypasses the shared client/timeout setup.
	if cmd == "hub" {
		return runHub()
	}
	if cmd == "version" {
		fmt.Println(version.Info())
		return exitOK
	}
	if cmd == "config" {
		return runConfig(rest)
	}

	ctx, cancel := context.WithTimeout(context.Background(), environment.DurationOr("HUBCTL_TIMEOUT", 10*time.Second))
	defer cancel()

	client := &restClient{
		baseURL: environment.StringOr("HUBCTL_ADDR", "http://localhost:8443"),
		apiKey:  os.Getenv("HUBCTL_API_KEY"),
		http:    &http.Client{},
	}

	var err error
	switch cmd {
	case "list":
		err = runList(ctx, client)
	case "tool":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: hubctl tool <name>")
			return exitFatal
		}
		err = runTool(ctx, client, rest[0])
	case "openapi":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: hubctl openapi <url>")
			return exitFatal
		}
		err = runOpenAPIImport(ctx, client, rest[0])
	case "info":
		err = runInfo(ctx, client)
	case "mcp-config":
		err = runMCPConfig(client)
	default:
		usage()
		return exitFatal
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintln(os.Stderr, "hubctl: timed out waiting for the hub")
			return exitTimeout
		}
		fmt.Fprintf(os.Stderr, "hubctl: %v\n", err)
		return exitFatal
	}
	return exitOK
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hubctl <list|tool <name>|openapi <url>|hub|info|mcp-config|version|config {show|set|reset}>")
}

// runHub runs the daemon in this process, blocking until SIGINT/SIGTERM.
// It is a convenience for local development; cmd/hubd is the long-running
// deployment artifact.
func runHub() int {
	daemon.ConfigureLogging()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := daemon.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hubctl hub: %v\n", err)
		return exitFatal
	}
	return exitOK
}

// --- commands ---

func runList(ctx context.Context, c *restClient) error {
	var catalogue []map[string]any
	if err := c.getJSON(ctx, "/api/tools/catalogue", &catalogue); err != nil {
		return err
	}
	if len(catalogue) == 0 {
		fmt.Println("no tools registered")
		return nil
	}
	fmt.Printf("%-20s %-14s %-10s %s\n", "NAME", "CATEGORY", "AUTH", "ENABLED")
	for _, t := range catalogue {
		fmt.Printf("%-20v %-14v %-10v %v\n", t["tool_name"], t["category"], t["auth_type"], t["enabled"])
	}
	return nil
}

func runTool(ctx context.Context, c *restClient, name string) error {
	var meta map[string]any
	if err := c.getJSON(ctx, "/api/tools/"+name+"/metadata", &meta); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func runOpenAPIImport(ctx context.Context, c *restClient, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch openapi document: %w", err)
	}
	defer resp.Body.Close()

	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&doc); err != nil {
		return fmt.Errorf("parse openapi document: %w", err)
	}

	fmt.Printf("openapi document %q (%s): %d path(s) discovered\n", doc.Info.Title, doc.Info.Version, len(doc.Paths))
	fmt.Println("openapi import is not yet wired to tool registration; re-run once the importer lands")
	return nil
}

func runInfo(ctx context.Context, c *restClient) error {
	var info map[string]any
	if err := c.getJSON(ctx, "/api/info", &info); err != nil {
		return err
	}
	fmt.Println("hubctl:", version.Info())
	for k, v := range info {
		fmt.Printf("%s: %v\n", k, v)
	}
	return nil
}

func runMCPConfig(c *restClient) error {
	cfg := map[string]any{
		"mcpServers": map[string]any{
			"hub": map[string]any{
				"url":     strings.TrimRight(c.baseURL, "/") + "/mcp",
				"headers": map[string]string{"Authorization": "Bearer <your-api-key>"},
			},
		},
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

func runConfig(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: hubctl config {show|set|reset}")
		return exitFatal
	}
	path := environment.StringOr("HUBCTL_CONFIG_PATH", defaultConfigPath())

	switch args[0] {
	case "show":
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("{}")
			return exitOK
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "hubctl: %v\n", err)
			return exitFatal
		}
		os.Stdout.Write(data) //nolint:errcheck
		return exitOK
	case "set":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: hubctl config set <key> <value>")
			return exitFatal
		}
		cfg := loadLocalConfig(path)
		cfg[args[1]] = args[2]
		if err := saveLocalConfig(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "hubctl: %v\n", err)
			return exitFatal
		}
		return exitOK
	case "reset":
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hubctl: %v\n", err)
			return exitFatal
		}
		return exitOK
	default:
		fmt.Fprintln(os.Stderr, "usage: hubctl config {show|set|reset}")
		return exitFatal
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hubctl.json"
	}
	return home + "/.hubctl.json"
}

func loadLocalConfig(path string) map[string]string {
	cfg := map[string]string{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	json.Unmarshal(data, &cfg) //nolint:errcheck
	return cfg
}

func saveLocalConfig(path string, cfg map[string]string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// --- rest client ---

type restClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func (c *restClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.baseURL, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
