package module

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	perr "nocscan/internal/platform/errors"
)

const roster = `
accounts:
  - username: Ash
    password: pikachu
    proxy_pool: residential
  - username: misty
    password: starmie
    proxy: socks5://127.0.0.1:1080
    circuit:
      control: 127.0.0.1:9051
proxy_pools:
  residential: [socks5://10.0.0.1:1080, socks5://10.0.0.2:1080]
`

func TestParseAccounts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    string
		code  perr.ErrorCode
		field string
	}{
		{"ok", roster, 0, ""},
		{"empty", ``, perr.ErrorCodeInvalidArgument, ""},
		{"unknown key", "accounts:\n  - username: a\n    password: b\n    pasword: c\n", perr.ErrorCodeInvalidArgument, ""},
		{"no accounts", "accounts: []\n", perr.ErrorCodeValidation, "Accounts"},
		{"missing password", "accounts:\n  - username: a\n", perr.ErrorCodeValidation, "Password"},
		{"bad proxy url", "accounts:\n  - {username: a, password: b, proxy: 'not a url'}\n", perr.ErrorCodeValidation, "proxy"},
		{"proxy and pool", "accounts:\n  - {username: a, password: b, proxy: 'socks5://h:1', proxy_pool: p}\nproxy_pools: {p: ['socks5://h:2']}\n", perr.ErrorCodeValidation, "proxy"},
		{"bad circuit", "accounts:\n  - {username: a, password: b, circuit: {control: nohost}}\n", perr.ErrorCodeValidation, "control"},
		{"unknown pool", "accounts:\n  - {username: a, password: b, proxy_pool: nope}\n", perr.ErrorCodeInvalidArgument, "proxy_pool"},
		{"duplicate folded", "accounts:\n  - {username: Ash, password: b}\n  - {username: ash, password: c}\n", perr.ErrorCodeConflict, "username"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			af, err := ParseAccounts(strings.NewReader(c.in))
			if c.code == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(af.Accounts) != 2 || af.Accounts[0].ProxyPool != "residential" || !af.Accounts[1].HasCircuit() {
					t.Fatalf("roster = %+v", af)
				}
				return
			}
			if perr.CodeOf(err) != c.code {
				t.Fatalf("code = %v want %v (%v)", perr.CodeOf(err), c.code, err)
			}
			if c.field != "" {
				e, _ := perr.As(err)
				if e == nil || e.Field() != c.field {
					t.Fatalf("field = %q want %q (%v)", e.Field(), c.field, err)
				}
			}
		})
	}
}

func TestLoadAccounts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.yaml")
	if err := os.WriteFile(path, []byte(roster), 0o600); err != nil {
		t.Fatal(err)
	}
	af, err := LoadAccounts(path)
	if err != nil || len(af.Accounts) != 2 {
		t.Fatalf("load = %+v, %v", af, err)
	}
	if _, err := LoadAccounts(filepath.Join(dir, "missing.yaml")); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("missing file err = %v", err)
	}
}
