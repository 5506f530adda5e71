package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/mymonad/aura/internal/ledger"
	"github.com/mymonad/aura/internal/zkproof"
	"github.com/mymonad/aura/pkg/aura"
)

// Environment variables that override secrets from the config file.
const (
	EnvOwner         = "AURA_OWNER"
	EnvAMQPURL       = "AURA_AMQP_URL"
	EnvGraphPassword = "AURA_GRAPH_PASSWORD"
	EnvAuditDSN      = "AURA_AUDIT_DSN"
)

// Paths holds XDG-compliant paths for aura.
type Paths struct {
	ConfigDir    string // ~/.config/aura
	DataDir      string // ~/.local/share/aura
	ConfigFile   string // ~/.config/aura/node.toml
	NodeSocket   string // ~/.local/share/aura/node.sock
	IdentityPath string // ~/.local/share/aura/identity.key
	KeysDir      string // ~/.local/share/aura/keys
	AuditDB      string // ~/.local/share/aura/audit.db
}

// ExpandPath expands ~ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
// Panics if home directory cannot be determined when ~ expansion is needed.
func ExpandPath(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultPaths returns the default XDG-compliant paths.
// Panics if the user's home directory cannot be determined.
func DefaultPaths() Paths {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get home directory: %v", err))
	}
	configDir := filepath.Join(home, ".config", "aura")
	dataDir := filepath.Join(home, ".local", "share", "aura")

	return Paths{
		ConfigDir:    configDir,
		DataDir:      dataDir,
		ConfigFile:   filepath.Join(configDir, "node.toml"),
		NodeSocket:   filepath.Join(dataDir, "node.sock"),
		IdentityPath: filepath.Join(dataDir, "identity.key"),
		KeysDir:      filepath.Join(dataDir, "keys"),
		AuditDB:      filepath.Join(dataDir, "audit.db"),
	}
}

// EnsureDirectories creates config and data directories if they don't exist.
func (p Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.ConfigDir, 0700); err != nil {
		return err
	}
	return os.MkdirAll(p.DataDir, 0700)
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// NodeConfig holds configuration for aura-node.
type NodeConfig struct {
	Ledger  LedgerConfig  `toml:"ledger"`
	ZK      ZKConfig      `toml:"zk"`
	RPC     RPCConfig     `toml:"rpc"`
	HTTP    HTTPConfig    `toml:"http"`
	Audit   AuditConfig   `toml:"audit"`
	AMQP    AMQPConfig    `toml:"amqp"`
	Graph   GraphConfig   `toml:"graph"`
	Sweeper SweeperConfig `toml:"sweeper"`
	Logging LoggingConfig `toml:"logging"`
}

// LedgerConfig holds the ledger parameters.
type LedgerConfig struct {
	// Owner is the base58 principal of the initial authority.
	Owner            string   `toml:"owner"`
	RegistrationAura uint64   `toml:"registration_aura"`
	MatchAura        uint64   `toml:"match_aura"`
	RevealAura       uint64   `toml:"reveal_aura"`
	VerificationAura uint64   `toml:"verification_aura"`
	AwardOnReverify  bool     `toml:"award_on_reverify"`
	IntentTTL        Duration `toml:"intent_ttl"`
}

// ZKConfig holds proof verification settings.
type ZKConfig struct {
	Backend      string   `toml:"backend"`
	KeysDir      string   `toml:"keys_dir"`
	DevSetup     bool     `toml:"dev_setup"`
	ProofTimeout Duration `toml:"proof_timeout"`
	Workers      int      `toml:"workers"`
	CacheSize    int      `toml:"cache_size"`
}

// RPCConfig holds the local gRPC socket and envelope authentication settings.
type RPCConfig struct {
	Socket          string   `toml:"socket"`
	MaxClockSkew    Duration `toml:"max_clock_skew"`
	ReplayCacheSize int      `toml:"replay_cache_size"`
}

// HTTPConfig holds the read-only gateway settings.
type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// AuditConfig holds event journal and store settings. An empty Driver
// keeps events in memory only.
type AuditConfig struct {
	BufferSize  int    `toml:"buffer_size"`
	JournalSize int    `toml:"journal_size"`
	Driver      string `toml:"driver"`
	DSN         string `toml:"dsn"`
}

// AMQPConfig holds the event publisher settings. An empty URL disables it.
type AMQPConfig struct {
	URL           string `toml:"url"`
	Exchange      string `toml:"exchange"`
	RoutingPrefix string `toml:"routing_prefix"`
}

// GraphConfig holds the match graph settings. An empty URI disables it.
type GraphConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// SweeperConfig holds the intent expiry schedule.
type SweeperConfig struct {
	Schedule string `toml:"schedule"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultNodeConfig returns a NodeConfig with sensible defaults.
func DefaultNodeConfig() NodeConfig {
	paths := DefaultPaths()
	zk := zkproof.DefaultZKConfig()
	return NodeConfig{
		Ledger: LedgerConfig{
			RegistrationAura: ledger.RegistrationAura,
			MatchAura:        ledger.MatchAura,
			RevealAura:       ledger.RevealAura,
			VerificationAura: ledger.VerificationAura,
		},
		ZK: ZKConfig{
			Backend:      string(zk.Backend),
			KeysDir:      paths.KeysDir,
			ProofTimeout: Duration(zk.ProofTimeout),
			Workers:      zk.Workers,
			CacheSize:    zk.CacheSize,
		},
		RPC: RPCConfig{
			Socket:          paths.NodeSocket,
			MaxClockSkew:    Duration(30 * time.Second),
			ReplayCacheSize: 65536,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8787",
		},
		Audit: AuditConfig{
			BufferSize:  256,
			JournalSize: 4096,
			Driver:      "sqlite",
			DSN:         paths.AuditDB,
		},
		AMQP: AMQPConfig{
			Exchange:      "aura.events",
			RoutingPrefix: "aura",
		},
		Graph: GraphConfig{
			Database: "neo4j",
			Username: "neo4j",
		},
		Sweeper: SweeperConfig{
			Schedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadNodeConfig loads a NodeConfig from a TOML file on top of the
// defaults, then applies environment overrides. A .env file next to the
// config file is loaded first when present; variables already set in the
// environment win. Paths with ~ are expanded to the user's home directory.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultNodeConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	cfg.ApplyEnv()
	cfg.expandPaths()

	return &cfg, nil
}

// ApplyEnv overrides secrets with the AURA_* environment variables.
func (c *NodeConfig) ApplyEnv() {
	if v := os.Getenv(EnvOwner); v != "" {
		c.Ledger.Owner = v
	}
	if v := os.Getenv(EnvAMQPURL); v != "" {
		c.AMQP.URL = v
	}
	if v := os.Getenv(EnvGraphPassword); v != "" {
		c.Graph.Password = v
	}
	if v := os.Getenv(EnvAuditDSN); v != "" {
		c.Audit.DSN = v
	}
}

func (c *NodeConfig) expandPaths() {
	c.ZK.KeysDir = ExpandPath(c.ZK.KeysDir)
	c.RPC.Socket = ExpandPath(c.RPC.Socket)
	if c.Audit.Driver == "sqlite" {
		c.Audit.DSN = ExpandPath(c.Audit.DSN)
	}
}

// Validate checks the configuration for errors.
func (c NodeConfig) Validate() error {
	if _, err := c.LedgerConfig(); err != nil {
		return err
	}
	if err := c.ZKConfig().Validate(); err != nil {
		return err
	}
	if c.RPC.Socket == "" {
		return errors.New("config: rpc.socket is required")
	}
	if c.RPC.MaxClockSkew <= 0 {
		return errors.New("config: rpc.max_clock_skew must be positive")
	}
	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		return errors.New("config: http.listen is required when http is enabled")
	}
	switch c.Audit.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Audit.DSN == "" {
			return fmt.Errorf("config: audit.dsn is required for driver %s", c.Audit.Driver)
		}
	default:
		return fmt.Errorf("config: unknown audit driver %q", c.Audit.Driver)
	}
	if c.AMQP.URL != "" && c.AMQP.Exchange == "" {
		return errors.New("config: amqp.exchange is required when amqp.url is set")
	}
	if c.Sweeper.Schedule == "" {
		return errors.New("config: sweeper.schedule is required")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// LedgerConfig converts the [ledger] section.
func (c NodeConfig) LedgerConfig() (ledger.Config, error) {
	if c.Ledger.Owner == "" {
		return ledger.Config{}, fmt.Errorf("config: %w: ledger.owner is required", aura.ErrInvalidOwner)
	}
	owner, err := aura.ParsePrincipal(c.Ledger.Owner)
	if err != nil {
		return ledger.Config{}, fmt.Errorf("config: %w: %v", aura.ErrInvalidOwner, err)
	}
	cfg := ledger.Config{
		Owner:            owner,
		RegistrationAura: c.Ledger.RegistrationAura,
		MatchAura:        c.Ledger.MatchAura,
		RevealAura:       c.Ledger.RevealAura,
		VerificationAura: c.Ledger.VerificationAura,
		AwardOnReverify:  c.Ledger.AwardOnReverify,
		IntentTTL:        time.Duration(c.Ledger.IntentTTL),
	}
	return cfg, cfg.Validate()
}

// ZKConfig converts the [zk] section.
func (c NodeConfig) ZKConfig() zkproof.ZKConfig {
	return zkproof.ZKConfig{
		Backend:      zkproof.Backend(c.ZK.Backend),
		KeysDir:      c.ZK.KeysDir,
		DevSetup:     c.ZK.DevSetup,
		ProofTimeout: time.Duration(c.ZK.ProofTimeout),
		Workers:      c.ZK.Workers,
		CacheSize:    c.ZK.CacheSize,
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("config: invalid logging.level %q", name)
	}
	return level, nil
}
