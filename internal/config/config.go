// Package config loads table and session settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

type Config struct {
	Table      TableConfig      `toml:"table"`
	Seats      []SeatConfig     `toml:"seats"`
	Simulation SimulationConfig `toml:"simulation"`
	Storage    StorageConfig    `toml:"storage"`
	Log        LogConfig        `toml:"log"`
}

type TableConfig struct {
	ID         string `toml:"id"`
	SmallBlind int    `toml:"small_blind"`
	BigBlind   int    `toml:"big_blind"`
	Ante       int    `toml:"ante"`
	Variant    string `toml:"variant"`
	// DealOutUncontested deals the rest of the board after everyone folds.
	DealOutUncontested bool `toml:"deal_out_uncontested"`
}

type SeatConfig struct {
	UID   string `toml:"uid"`
	Name  string `toml:"name"`
	Stack int    `toml:"stack"`
}

type SimulationConfig struct {
	Seed  int64  `toml:"seed"`
	Hands int    `toml:"hands"`
	Out   string `toml:"out"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

type LogConfig struct {
	Debug bool `toml:"debug"`
}

var ErrInvalid = errors.New("invalid config")

// Default returns a six-handed 1/2 table.
func Default() Config {
	seats := make([]SeatConfig, 0, 6)
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin", "frank"} {
		seats = append(seats, SeatConfig{UID: name, Name: name, Stack: 200})
	}
	return Config{
		Table: TableConfig{
			ID:         "table-1",
			SmallBlind: 1,
			BigBlind:   2,
			Variant:    handhistory.VariantNLHE,
		},
		Seats:      seats,
		Simulation: SimulationConfig{Seed: 1, Hands: 100, Out: "hands"},
		Storage:    StorageConfig{DBPath: defaultDBPath()},
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "holdem-engine", "hands.db")
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(data string) (Config, error) {
	cfg := Default()
	var raw Config
	md, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %s", ErrInvalid, undecoded[0])
	}
	cfg.merge(raw, md)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge copies every key that was present in the file.
func (c *Config) merge(raw Config, md toml.MetaData) {
	set := func(keys ...string) bool { return md.IsDefined(keys...) }

	if set("table", "id") {
		c.Table.ID = raw.Table.ID
	}
	if set("table", "small_blind") {
		c.Table.SmallBlind = raw.Table.SmallBlind
	}
	if set("table", "big_blind") {
		c.Table.BigBlind = raw.Table.BigBlind
	}
	if set("table", "ante") {
		c.Table.Ante = raw.Table.Ante
	}
	if set("table", "variant") {
		c.Table.Variant = raw.Table.Variant
	}
	if set("table", "deal_out_uncontested") {
		c.Table.DealOutUncontested = raw.Table.DealOutUncontested
	}
	if set("seats") {
		c.Seats = raw.Seats
	}
	if set("simulation", "seed") {
		c.Simulation.Seed = raw.Simulation.Seed
	}
	if set("simulation", "hands") {
		c.Simulation.Hands = raw.Simulation.Hands
	}
	if set("simulation", "out") {
		c.Simulation.Out = raw.Simulation.Out
	}
	if set("storage", "db_path") {
		c.Storage.DBPath = raw.Storage.DBPath
	}
	if set("log", "debug") {
		c.Log.Debug = raw.Log.Debug
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	bad := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Table.ID == "" {
		bad("table id is empty")
	}
	if c.Table.BigBlind <= 0 {
		bad("big blind %d must be positive", c.Table.BigBlind)
	}
	if c.Table.SmallBlind < 0 || c.Table.SmallBlind > c.Table.BigBlind {
		bad("small blind %d must be between 0 and the big blind", c.Table.SmallBlind)
	}
	if c.Table.Ante < 0 {
		bad("ante %d is negative", c.Table.Ante)
	}
	if c.Table.Variant != "" && c.Table.Variant != handhistory.VariantNLHE {
		bad("unsupported variant %q", c.Table.Variant)
	}
	if len(c.Seats) < 2 {
		bad("need at least 2 seats, got %d", len(c.Seats))
	}
	if len(c.Seats) > 10 {
		bad("at most 10 seats, got %d", len(c.Seats))
	}
	seen := make(map[string]bool, len(c.Seats))
	for i, s := range c.Seats {
		if s.UID == "" {
			bad("seat %d has no uid", i+1)
			continue
		}
		if seen[s.UID] {
			bad("duplicate seat uid %q", s.UID)
		}
		seen[s.UID] = true
		if s.Stack <= 0 {
			bad("seat %q stack %d must be positive", s.UID, s.Stack)
		}
	}
	if c.Simulation.Hands < 0 {
		bad("simulation hands %d is negative", c.Simulation.Hands)
	}
	return err
}

// HandSeats converts the seat list into hand-history seats numbered from 1.
func (c Config) HandSeats() []handhistory.Seat {
	out := make([]handhistory.Seat, 0, len(c.Seats))
	for i, s := range c.Seats {
		name := s.Name
		if name == "" {
			name = s.UID
		}
		out = append(out, handhistory.Seat{
			SeatNo:        i + 1,
			PlayerUID:     s.UID,
			Name:          name,
			StartingStack: s.Stack,
		})
	}
	return out
}
