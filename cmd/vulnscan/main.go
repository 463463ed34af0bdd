// ABOUTME: Entry point for the vulnscan server
// ABOUTME: Serves the REST API over the SQLite-backed vulnerability inventory

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/intellivuln/vulnscan/internal/auth"
	"github.com/intellivuln/vulnscan/internal/config"
	"github.com/intellivuln/vulnscan/internal/httpapi"
	"github.com/intellivuln/vulnscan/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
            _
__   ___   _| |_ __  ___  ___ __ _ _ __
\ \ / / | | | | '_ \/ __|/ __/ _' | '_ \
 \ V /| |_| | | | | \__ \ (_| (_| | | | |
  \_/  \__,_|_|_| |_|___/\___\__,_|_| |_|
`

// configPath resolves the config file location. VULNSCAN_CONFIG overrides
// everything; otherwise the XDG config dir is used, falling back to
// ~/.config/vulnscan/server.yaml.
func configPath() string {
	if p := os.Getenv("VULNSCAN_CONFIG"); p != "" {
		return p
	}

	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			// Last resort: current directory.
			return "server.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "vulnscan", "server.yaml")
}

// dataPath resolves the data directory (database lives here), preferring
// XDG_DATA_HOME over ~/.local/share.
func dataPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "vulnscan")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: vulnscan <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                   Start the API server")
		fmt.Println("  init                    Create a new config file interactively")
		fmt.Println("  bootstrap --email EMAIL Create config and the initial admin account")
		fmt.Println("  health                  Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	cfgPath := configPath()

	color.New(color.FgCyan).Print(banner)
	color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", cfgPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	if cfg.Environment == config.EnvDevelopment {
		color.New(color.FgYellow).Println("    ▶ development mode")
	}

	fmt.Println()

	logger.Info("starting vulnscan",
		"config", cfgPath,
		"http_addr", cfg.Server.HTTPAddr,
		"environment", cfg.Environment,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	srv, err := httpapi.NewServer(cfg, st)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&consoleHandler{level: level})
}

// consoleHandler writes compact colorized lines for interactive use. The JSON
// handler is the one meant for log aggregation.
type consoleHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func levelTag(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return color.MagentaString("DBG ")
	case slog.LevelInfo:
		return color.CyanString("INF ")
	case slog.LevelWarn:
		return color.YellowString("WRN ")
	case slog.LevelError:
		return color.New(color.FgRed, color.Bold).Sprint("ERR ")
	}
	return "??? "
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))
	buf.WriteString(levelTag(r.Level))
	buf.WriteString(r.Message)

	writeAttr := func(a slog.Attr) {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{level: h.level, attrs: merged}
}

// WithGroup is accepted but groups are flattened; the console format keeps
// every attr at the top level.
func (h *consoleHandler) WithGroup(string) slog.Handler {
	return h
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runBootstrap performs first-time setup:
// 1. Creates a config file with a random JWT secret (if not exists)
// 2. Creates the database and the initial admin account
//
// One-command setup: vulnscan bootstrap --email you@example.com
func runBootstrap(ctx context.Context) error {
	// Supports both "--flag value" and "--flag=value" formats
	var email, name string
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--email" || arg == "-e":
			if i+1 >= len(args) {
				return fmt.Errorf("--email requires a value")
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return fmt.Errorf("--name requires a value")
			}
			name = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("--email flag is required")
	}
	if name == "" {
		name = "Administrator"
	}

	cfgPath := configPath()
	dataDir := dataPath()
	dbPath := filepath.Join(dataDir, "vulnscan.db")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var cfg *config.Config

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

		if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		configContent := fmt.Sprintf(`# vulnscan configuration
# Generated by vulnscan bootstrap

environment: "production"

server:
  http_addr: "localhost:8080"

database:
  path: "%s"

auth:
  jwt_secret: "%s"
  token_lifetime: "24h"
  api_key_default_days: 365

logging:
  level: "info"
  format: "text"
`, dbPath, jwtSecret)

		if err := os.WriteFile(cfgPath, []byte(configContent), 0600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		green.Printf("  ✓ Created config: %s\n", cfgPath)

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		cyan.Printf("  Using existing config: %s\n", cfgPath)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	count, err := st.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("checking accounts: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("bootstrap already complete: %d account(s) exist", count)
	}

	// Random one-time password, printed once below.
	passwordBytes := make([]byte, 18)
	if _, err := rand.Read(passwordBytes); err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	password := base64.RawURLEncoding.EncodeToString(passwordBytes)

	passwords := auth.NewPasswordAuthenticator(st, st)
	user, err := passwords.Register(ctx, email, name, password)
	if err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}

	if err := st.UpdateUserRole(ctx, user.ID, store.RoleAdmin); err != nil {
		return fmt.Errorf("granting admin role: %w", err)
	}

	green.Printf("  ✓ Created admin account: %s\n", email)

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Admin Account")
	cyan.Println("  -------------")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Name:     %s\n", name)
	fmt.Printf("  Role:     ADMIN\n")
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()

	yellow.Println("  Ready to go:")
	fmt.Println("    vulnscan serve    # start the server")
	fmt.Println("    POST /auth/login  # exchange the password for a token")
	fmt.Println()

	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("vulnscan configuration setup")
	fmt.Println("============================")
	fmt.Println()

	defaultConfigPath := configPath()
	defaultDbPath := filepath.Join(dataPath(), "vulnscan.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	environment := prompt(reader, "Environment (development/production)", "production")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- Auth Configuration ---")
	jwtSecret := prompt(reader, "JWT secret (leave empty to generate)", "")
	if jwtSecret == "" {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret = base64.StdEncoding.EncodeToString(secretBytes)
		fmt.Println("Generated a random JWT secret.")
	}
	tokenLifetime := prompt(reader, "Token lifetime", "24h")
	keyDays := prompt(reader, "Default API key lifetime (days)", "365")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# vulnscan configuration\n")
	cfg.WriteString("# Generated by vulnscan init\n\n")

	cfg.WriteString(fmt.Sprintf("environment: \"%s\"\n\n", environment))

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
	cfg.WriteString(fmt.Sprintf("  token_lifetime: \"%s\"\n", tokenLifetime))
	cfg.WriteString(fmt.Sprintf("  api_key_default_days: %s\n", keyDays))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  vulnscan serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
