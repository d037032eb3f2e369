package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.HandSeats()) != 6 {
		t.Fatalf("default seats = %d, want 6", len(cfg.HandSeats()))
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "table.toml")
	data := `
[table]
id = "cash-7"
small_blind = 5
big_blind = 10
ante = 1

[[seats]]
uid = "p1"
stack = 1000

[[seats]]
uid = "p2"
name = "Player Two"
stack = 500

[simulation]
hands = 25

[log]
debug = true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Table.ID != "cash-7" || cfg.Table.SmallBlind != 5 || cfg.Table.BigBlind != 10 || cfg.Table.Ante != 1 {
		t.Fatalf("table = %+v", cfg.Table)
	}
	if cfg.Table.Variant != "nlhe" {
		t.Fatalf("variant = %q, want default nlhe", cfg.Table.Variant)
	}
	if cfg.Simulation.Hands != 25 || cfg.Simulation.Seed != 1 {
		t.Fatalf("simulation = %+v", cfg.Simulation)
	}
	if !cfg.Log.Debug {
		t.Fatalf("debug not set")
	}

	seats := cfg.HandSeats()
	if len(seats) != 2 {
		t.Fatalf("seats = %d, want 2", len(seats))
	}
	if seats[0].Name != "p1" || seats[1].Name != "Player Two" || seats[1].SeatNo != 2 {
		t.Fatalf("seats = %+v", seats)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "unknown key",
			data: "[table]\nbig_blinds = 4\n",
			want: "unknown key",
		},
		{
			name: "small above big",
			data: "[table]\nsmall_blind = 5\nbig_blind = 2\n",
			want: "small blind",
		},
		{
			name: "single seat",
			data: "[[seats]]\nuid = \"solo\"\nstack = 10\n",
			want: "at least 2 seats",
		},
		{
			name: "duplicate uid",
			data: "[[seats]]\nuid = \"a\"\nstack = 10\n[[seats]]\nuid = \"a\"\nstack = 10\n",
			want: "duplicate seat uid",
		},
		{
			name: "variant",
			data: "[table]\nvariant = \"plo\"\n",
			want: "unsupported variant",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.data)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("error %v is not ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Table.BigBlind = 0
	cfg.Seats = nil
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"big blind", "at least 2 seats"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error = %q, missing %q", err, want)
		}
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Table.ID != Default().Table.ID {
		t.Fatalf("table id = %q", cfg.Table.ID)
	}
}
