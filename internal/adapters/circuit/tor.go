// Package circuit requests fresh Tor circuits over the control port
package circuit

import (
	"context"
	"net"
	"net/textproto"
	"strconv"
	"time"

	"nocscan/internal/core/account"
	perr "nocscan/internal/platform/errors"
	"nocscan/internal/platform/logger"
)

const defaultTimeout = 5 * time.Second

// Tor speaks just enough of the control protocol to authenticate and send NEWNYM
type Tor struct {
	timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	log     *logger.Logger
}

// NewTor builds a rotator; timeout <= 0 means 5s per rotation
func NewTor(timeout time.Duration) *Tor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	d := &net.Dialer{Timeout: timeout}
	return &Tor{timeout: timeout, dial: d.DialContext, log: logger.Named("circuit")}
}

// Rotate authenticates against the account's control port and signals NEWNYM
func (t *Tor) Rotate(ctx context.Context, acct account.Account) error {
	if !acct.HasCircuit() {
		return perr.InvalidArgf("account %s has no circuit configured", acct)
	}
	addr := acct.Circuit.Control

	conn, err := t.dial(ctx, "tcp", addr)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "dial tor control %s", addr)
	}
	defer conn.Close()

	deadline := time.Now().Add(t.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	tc := textproto.NewConn(conn)
	if err := command(tc, "AUTHENTICATE "+strconv.Quote(acct.Circuit.Password)); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnauthorized, "tor control authenticate %s", addr)
	}
	if err := command(tc, "SIGNAL NEWNYM"); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "tor control newnym %s", addr)
	}
	_ = tc.PrintfLine("QUIT")

	t.log.Info().Str("account", acct.Username).Str("control", addr).Msg("circuit rotated")
	return nil
}

// command sends one line and expects a 250 reply
func command(tc *textproto.Conn, line string) error {
	id, err := tc.Cmd("%s", line)
	if err != nil {
		return err
	}
	tc.StartResponse(id)
	defer tc.EndResponse(id)
	_, _, err = tc.ReadResponse(250)
	return err
}
