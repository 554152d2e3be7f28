// Package cli implements the coapmsg command line tool.
package cli

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/plgd-dev/coapmsg/internal/config"
	"github.com/plgd-dev/coapmsg/message/pool"
	"github.com/spf13/cobra"
)

// App holds the dependencies shared by every command.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	pool   *pool.Pool
	in     io.Reader
	out    io.Writer
}

func New(cfg config.Config, logger *slog.Logger, in io.Reader, out io.Writer) (*App, error) {
	maxSize, err := cfg.MessageSize()
	if err != nil {
		return nil, fmt.Errorf("invalid max message size: %w", err)
	}
	maxPooled, err := cfg.PooledMessages()
	if err != nil {
		return nil, fmt.Errorf("invalid max pooled messages: %w", err)
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		pool:   pool.New(maxPooled, maxSize),
		in:     in,
		out:    out,
	}, nil
}

// NewRootCmd builds the command tree.
func (a *App) NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "coapmsg",
		Short:         "Decode, encode and inspect CoAP datagrams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger.Debug("configuration loaded", slog.String("config", a.cfg.String()))
		},
	}
	rootCmd.SetIn(a.in)
	rootCmd.SetOut(a.out)

	rootCmd.AddCommand(a.newDecodeCmd())
	rootCmd.AddCommand(a.newEncodeCmd())
	rootCmd.AddCommand(a.newPeekCmd())
	rootCmd.AddCommand(a.newTokenCmd())
	return rootCmd
}

func (a *App) newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [HEX...]",
		Short: "decode datagrams given as hex arguments or stdin lines",
		Long:  `Decodes every datagram and prints one line per input in input order. Without arguments each non-empty stdin line is one datagram.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := args
			if len(inputs) == 0 {
				var err error
				inputs, err = readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			results, err := a.Decode(cmd.Context(), inputs)
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return err
		},
	}
}

func (a *App) newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode FILE",
		Short: "encode the message described by a TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.Encode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		},
	}
}

func (a *App) newPeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peek HEX",
		Short: "print the type and message id of a datagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.Peek(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (a *App) newTokenCmd() *cobra.Command {
	var length int
	var seed int64
	cmd := &cobra.Command{
		Use:   "token",
		Short: "generate a random token",
		Long:  `Generates a token from crypto/rand, or from a deterministic generator when --seed is given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}
			token, err := a.Token(length, seedPtr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().IntVarP(&length, "length", "l", 8, "token length in bytes (0-8)")
	cmd.Flags().Int64VarP(&seed, "seed", "s", 0, "seed for the deterministic generator")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read input: %w", err)
	}
	return lines, nil
}

// parseHex accepts an optional 0x prefix and ignores whitespace and colons.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ':':
			return -1
		}
		return r
	}, s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
