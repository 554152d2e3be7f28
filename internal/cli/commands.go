package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/plgd-dev/coapmsg/internal/msgfile"
	"github.com/plgd-dev/coapmsg/message"
	pkgRand "github.com/plgd-dev/coapmsg/pkg/rand"
	"github.com/plgd-dev/coapmsg/udp/coder"
	"golang.org/x/sync/errgroup"
)

// Decode decodes every hex input with at most DecodeWorkers running at once.
// The returned lines follow the input order; a failed input yields an error
// line and its error is part of the aggregated result.
func (a *App) Decode(ctx context.Context, inputs []string) ([]string, error) {
	results := make([]string, len(inputs))
	failures := make([]error, len(inputs))

	g, ctx := errgroup.WithContext(contextOrBackground(ctx))
	g.SetLimit(a.cfg.DecodeWorkers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := a.decodeOne(ctx, in)
			if err != nil {
				failures[i] = fmt.Errorf("input %v: %w", i, err)
				a.logger.Debug("cannot decode datagram", slog.Int("input", i), slog.String("error", err.Error()))
				results[i] = "error: " + failures[i].Error()
				return nil
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var errs *multierror.Error
	for _, err := range failures {
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return results, errs.ErrorOrNil()
}

func (a *App) decodeOne(ctx context.Context, in string) (string, error) {
	data, err := parseHex(in)
	if err != nil {
		return "", err
	}
	msg := a.pool.AcquireMessage(ctx)
	defer a.pool.ReleaseMessage(msg)
	if _, err = msg.UnmarshalWithDecoder(coder.DefaultCoder, data); err != nil {
		return "", err
	}
	return msg.String(), nil
}

// Encode builds the message described by the TOML file at path and returns its datagram.
func (a *App) Encode(path string) ([]byte, error) {
	m, err := msgfile.LoadFile(path)
	if err != nil {
		return nil, err
	}
	msg := a.pool.AcquireMessage(context.Background())
	defer a.pool.ReleaseMessage(msg)
	if err = msg.SetMessage(m); err != nil {
		return nil, err
	}
	data, err := msg.MarshalWithEncoder(coder.DefaultCoder)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("message encoded", slog.String("message", msg.String()), slog.Int("size", len(data)))
	return append([]byte(nil), data...), nil
}

// Peek reports the type and message id of a hex datagram.
func (a *App) Peek(in string) (string, error) {
	data, err := parseHex(in)
	if err != nil {
		return "", err
	}
	typ, mid, err := coder.PeekTypeMessageID(data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Type: %v, MessageID: %v", typ, mid), nil
}

// Token generates a token of length bytes. A nil seed selects crypto/rand.
func (a *App) Token(length int, seed *int64) (message.Token, error) {
	var src io.Reader = rand.Reader
	if seed != nil {
		src = pkgRand.NewRand(*seed)
	}
	return message.GenerateToken(src, length)
}
