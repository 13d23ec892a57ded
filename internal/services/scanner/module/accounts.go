package module

import (
	"errors"
	"io"
	"os"

	"nocscan/internal/core/account"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/platform/net/http/bind"

	"gopkg.in/yaml.v3"
)

// AccountsFile is the on-disk account roster:
//
//	accounts:
//	  - username: ash
//	    password: pikachu
//	    proxy_pool: residential
//	proxy_pools:
//	  residential: [socks5://10.0.0.1:1080, socks5://10.0.0.2:1080]
type AccountsFile struct {
	Accounts   []account.Account   `yaml:"accounts" validate:"required,min=1,dive"`
	ProxyPools map[string][]string `yaml:"proxy_pools"`
}

// LoadAccounts reads and validates the roster at path
func LoadAccounts(path string) (AccountsFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return AccountsFile{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "open accounts file %s", path)
	}
	defer func() { _ = f.Close() }()
	return ParseAccounts(f)
}

// ParseAccounts decodes a roster, validates every account and checks that
// named proxy pools exist and usernames are unique after folding
func ParseAccounts(r io.Reader) (AccountsFile, error) {
	var af AccountsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&af); err != nil {
		if errors.Is(err, io.EOF) {
			return af, perr.InvalidArgf("accounts file is empty")
		}
		return af, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode accounts file")
	}
	if err := bind.Struct(af); err != nil {
		return af, err
	}

	seen := make(map[account.ID]struct{}, len(af.Accounts))
	for _, a := range af.Accounts {
		if _, dup := seen[a.ID()]; dup {
			return af, perr.WithField(perr.Conflictf("account %s listed twice", a), "username")
		}
		seen[a.ID()] = struct{}{}
		if a.ProxyPool == "" {
			continue
		}
		if len(af.ProxyPools[a.ProxyPool]) == 0 {
			return af, perr.WithField(perr.InvalidArgf("account %s uses unknown proxy pool %q", a, a.ProxyPool), "proxy_pool")
		}
	}
	return af, nil
}
