package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{name: "default"},
		{name: "no address", modify: func(c *Config) { c.Addr = "" }, field: "Addr"},
		{name: "no workers", modify: func(c *Config) { c.Workers = 0 }, field: "Workers"},
		{name: "negative idle", modify: func(c *Config) { c.IdleTimeout = -1 }, field: "IdleTimeout"},
		{name: "ssh without client", modify: func(c *Config) { c.SSHAddr = ":2222" }, field: "ClientBinary"},
		{name: "ssh with client", modify: func(c *Config) { c.SSHAddr = ":2222"; c.ClientBinary = "/bin/chessterm" }},
		{name: "bad status address", modify: func(c *Config) { c.StatusAddr = "nope" }, field: "StatusAddr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.modify != nil {
				tt.modify(&cfg)
			}
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want %v", err, ErrInvalidConfig)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Validate() = %v, want it to name %s", err, tt.field)
			}
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, err := New(DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	a, b, c := offlinePlayer("a"), offlinePlayer("b"), offlinePlayer("c")
	newMatch := func(white, black *Player) *Match { return NewMatch("m", white, black) }
	s.lobby.Join(a, newMatch)
	s.lobby.Join(b, newMatch)
	s.lobby.Join(c, newMatch)

	app := s.StatusApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/stats", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("GET /stats status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var got Stats
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Stats{Connected: 3, Waiting: 1, Matches: 1}, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("GET /health status %d", resp.StatusCode)
	}
}

func TestNickname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "alice", want: "alice"},
		{in: "  bob  ", want: "bob"},
		{in: "eve;rm -rf", want: "everm-rf"},
		{in: "averyveryverylongname", want: "averyveryverylon"},
	}
	for _, tt := range tests {
		if got := Nickname(tt.in); got != tt.want {
			t.Errorf("Nickname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Nickname("!!!"); got == "" {
		t.Error("Nickname of an unusable name is empty")
	}
}

func TestDialAddr(t *testing.T) {
	tests := map[string]string{
		":12312":         "127.0.0.1:12312",
		"0.0.0.0:1":      "127.0.0.1:1",
		"example.com:80": "example.com:80",
		"not an address": "not an address",
	}
	for in, want := range tests {
		if got := dialAddr(in); got != want {
			t.Errorf("dialAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientEnv(t *testing.T) {
	got := clientEnv(
		[]string{"PATH=/usr/bin:/bin", "HOME=/home/chess", "TERM=dumb"},
		[]string{"LANG=C.UTF-8"},
		"xterm-256color",
	)
	want := []string{"PATH=/usr/bin:/bin", "HOME=/home/chess", "TERM=dumb", "LANG=C.UTF-8", "TERM=xterm-256color"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("clientEnv() mismatch (-want +got):\n%s", diff)
	}
}

func TestSSHServerHostKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SSHAddr = "127.0.0.1:0"
	cfg.ClientBinary = "/bin/true"
	if _, err := NewSSHServer(cfg, zerolog.Nop()); err != nil {
		t.Fatalf("NewSSHServer() with generated key = %v", err)
	}

	cfg.HostKeyFile = "/nonexistent/host_key"
	if _, err := NewSSHServer(cfg, zerolog.Nop()); err == nil {
		t.Error("NewSSHServer() accepted a missing host key file")
	}
}
