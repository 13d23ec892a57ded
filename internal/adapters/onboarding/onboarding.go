// Package onboarding completes the first-login tutorial for fresh accounts
package onboarding

import (
	"context"
	"slices"

	"nocscan/internal/core/account"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/platform/logger"
	"nocscan/internal/services/scanner/domain"
)

// DefaultStages are the tutorial stages an account needs before it may scan:
// legal screen, avatar, first capture, name and first-time experience
var DefaultStages = []int{0, 1, 3, 4, 7}

// Tutorial completes whichever required stages the account is missing in one call
type Tutorial struct {
	stages []int
	log    *logger.Logger
}

var _ domain.Onboarding = (*Tutorial)(nil)

// New builds a Tutorial; nil stages mean DefaultStages
func New(stages []int) *Tutorial {
	if stages == nil {
		stages = DefaultStages
	}
	return &Tutorial{stages: slices.Clone(stages), log: logger.Named("onboarding")}
}

// Missing returns the required stages absent from state, in order
func (t *Tutorial) Missing(state []int) []int {
	var out []int
	for _, s := range t.stages {
		if !slices.Contains(state, s) {
			out = append(out, s)
		}
	}
	return out
}

// Run is a no-op for accounts that already finished the tutorial
func (t *Tutorial) Run(ctx context.Context, c domain.Client, acct account.Account, state []int) error {
	missing := t.Missing(state)
	if len(missing) == 0 {
		return nil
	}
	if err := c.CompleteTutorial(ctx, missing); err != nil {
		return perr.Wrapf(err, perr.CodeOf(err), "complete tutorial stages %v", missing)
	}
	t.log.Info().Str("account", acct.Username).Ints("stages", missing).Msg("tutorial completed")
	return nil
}
