// Package cli implements the tokenmigrate command tree.
//
// Flags are parsed by the config package from the whole command line, so
// cobra flag parsing is disabled and subcommands only see positionals.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/dmitrijs2005/tokenmigrate/internal/app"
	"github.com/dmitrijs2005/tokenmigrate/internal/config"
	"github.com/dmitrijs2005/tokenmigrate/internal/flagx"
	"github.com/spf13/cobra"
)

// Test seams.
var (
	loadConfig = config.LoadConfig
	newApp     = app.NewApp
)

const flagHelp = `Flags (any position):
  -c, -config path   JSON config file
  -t driver          store driver: postgres, mongo or memory
  -d dsn             PostgreSQL DSN
  -m uri, -D name    MongoDB URI and database
  -k secret          HMAC secret (prompted for when empty)
  -n                 dry run
  -l level, -f fmt   log level and format (json, text, zap)
  -M, -i, -P         argon2 memory KiB, iterations, parallelism
  -x url             Pushgateway URL
  -u, -p, -b, -r, -e S3 user, password, bucket, region, endpoint
  -a passphrase      archive passphrase
Environment: TOKENMIGRATE_* (a .env file is read if present).`

type runner struct {
	in       io.Reader
	lines    *bufio.Reader
	out, err io.Writer
}

// prompt reads one secret, from the terminal without echo when possible.
func (r *runner) prompt(label string) ([]byte, error) {
	if terminal(r.in) {
		return GetSecret(r.in, r.err, label)
	}
	return GetSecret(r.lines, r.err, label)
}

// NewRootCommand builds the command tree reading secrets from in and writing
// results to out and logs to errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	r := &runner{in: in, lines: bufio.NewReader(in), out: out, err: errOut}

	root := &cobra.Command{
		Use:           "tokenmigrate",
		Short:         "Hash plaintext credential tokens in place, with reversible backups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetUsageTemplate(root.UsageTemplate() + "\n" + flagHelp + "\n")

	root.AddCommand(
		r.command(&cobra.Command{
			Use:   "migrate",
			Short: "Hash every plaintext token and back up the originals",
			Long: `Migrate selects users with a plaintext emailVerificationToken or
passwordResetToken, writes one backup per user and replaces each token with an
argon2id hash and an HMAC-SHA256 lookup prefix. With -n it only counts.`,
		}, r.migrate),
		r.command(&cobra.Command{
			Use:   "revert",
			Short: "Restore plaintext tokens from the backups",
		}, r.revert),
		r.command(&cobra.Command{
			Use:   "lookup <field> [token]",
			Short: "Find the user owning a token (field: emailVerificationToken or passwordResetToken)",
		}, r.lookup),
		r.command(&cobra.Command{
			Use:   "archive",
			Short: "Upload an encrypted copy of all backups to S3",
		}, r.archive),
	)
	return root
}

type action func(ctx context.Context, a *app.App, cfg *config.Config, args []string) error

func (r *runner) command(c *cobra.Command, act action) *cobra.Command {
	c.DisableFlagParsing = true
	c.RunE = func(cmd *cobra.Command, args []string) error {
		if slices.Contains(args, "-h") || slices.Contains(args, "--help") {
			return cmd.Help()
		}

		cfg := loadConfig()
		a, err := newApp(cmd.Context(), cfg, r.err)
		if err != nil {
			return err
		}
		defer a.Close()

		pos := flagx.Positionals(args, config.BoolFlags...)
		return a.Run(cmd.Context(), func(ctx context.Context) error {
			return act(ctx, a, cfg, pos)
		})
	}
	return c
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context, in io.Reader, out, errOut io.Writer) int {
	if err := NewRootCommand(in, out, errOut).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}
