package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server defaults
const (
	DefaultPort           = 3001
	DefaultAllowedOrigins = "http://localhost:3000"
	DefaultWSPath         = "/ws"
	DefaultPingInterval   = 25 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultMaxMessageSize = 64 * 1024
	DefaultSendBuffer     = 256
)

// Client defaults
const (
	DefaultServerURL = "ws://localhost:3001/ws"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
	DefaultCodec     = "msgpack"
)

var ErrInvalid = errors.New("invalid configuration")

// LoadDotEnv reads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "err", err)
	}
}

// Server holds the signaling server configuration.
type Server struct {
	Port           int
	AllowedOrigins []string
	WSPath         string
	PingInterval   time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// ServerOptions carries command line overrides. Zero values mean "not set".
type ServerOptions struct {
	Port           int
	AllowedOrigins string
	WSPath         string
}

// Addr is the listen address for the HTTP server.
func (c *Server) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LoadServer reads configuration with the following priority:
// 1. command line flags (opts)
// 2. environment variables
// 3. defaults
func LoadServer(opts ServerOptions) (*Server, error) {
	var err error
	cfg := &Server{}

	cfg.Port = opts.Port
	if cfg.Port == 0 {
		if cfg.Port, err = envInt("PORT", DefaultPort); err != nil {
			return nil, err
		}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrInvalid, cfg.Port)
	}

	origins := pick(opts.AllowedOrigins, "ALLOWED_ORIGINS", DefaultAllowedOrigins)
	cfg.AllowedOrigins = splitList(origins)

	cfg.WSPath = pick(opts.WSPath, "WS_PATH", DefaultWSPath)
	if !strings.HasPrefix(cfg.WSPath, "/") {
		cfg.WSPath = "/" + cfg.WSPath
	}

	if cfg.PingInterval, err = envDuration("PING_INTERVAL", DefaultPingInterval); err != nil {
		return nil, err
	}
	if cfg.PongWait, err = envDuration("PONG_WAIT", DefaultPongWait); err != nil {
		return nil, err
	}
	if cfg.PingInterval >= cfg.PongWait {
		return nil, fmt.Errorf("%w: PING_INTERVAL (%s) must be shorter than PONG_WAIT (%s)", ErrInvalid, cfg.PingInterval, cfg.PongWait)
	}

	size, err := envInt("MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		return nil, err
	}
	cfg.MaxMessageSize = int64(size)

	if cfg.SendBuffer, err = envInt("SEND_BUFFER", DefaultSendBuffer); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Client holds the CLI configuration.
type Client struct {
	ServerURL string
	Codec     string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay sends all media through TURN.
	ForceRelay bool
}

// ClientOptions carries command line overrides.
type ClientOptions struct {
	ServerURL  string
	Codec      string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// LoadClient reads configuration with flag > environment > default priority.
func LoadClient(opts ClientOptions) (*Client, error) {
	cfg := &Client{
		ServerURL:  pick(opts.ServerURL, "SERVER_URL", DefaultServerURL),
		Codec:      pick(opts.Codec, "CODEC", DefaultCodec),
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
		ForceRelay: opts.ForceRelay || os.Getenv("FORCE_RELAY") == "true",
	}

	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: server url: %v", ErrInvalid, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: server url must use ws or wss, got %q", ErrInvalid, u.Scheme)
	}
	if cfg.Codec != "json" && cfg.Codec != "msgpack" {
		return nil, fmt.Errorf("%w: codec must be json or msgpack, got %q", ErrInvalid, cfg.Codec)
	}
	return cfg, nil
}

// STUNServers returns STUN server URLs.
func (c *Client) STUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// TURNServers returns TURN server URLs if configured
func (c *Client) TURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q is not a positive integer", ErrInvalid, key, v)
	}
	return n, nil
}

// envDuration accepts Go durations ("25s") or plain milliseconds ("25000").
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalid, key, v)
	}
	return d, nil
}
