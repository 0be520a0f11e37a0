package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/contractsig/auth"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Roles []string
	TTL   time.Duration
}

// TokenOutput is the success payload of the token command.
type TokenOutput struct {
	Token     string    `json:"token"`
	Principal string    `json:"principal"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <principal>",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Issue an HS256 bearer token signed with the configured auth secret.

Example:
  contractsig token ada@example.com --role designer --ttl 8h`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringSliceVar(&opts.Roles, "role", nil, "role the token may sign as (repeatable)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")

	return cmd
}

func runToken(opts *TokenOptions, cmd *cobra.Command, principal string) error {
	f := newFormatter(opts.RootOptions, cmd)
	cfg, err := loadConfig(opts.RootOptions, cmd, f, true)
	if err != nil {
		return err
	}
	if opts.TTL <= 0 {
		return f.Fail(ExitCommandError, ErrCodeArgument, errors.New("--ttl must be positive"))
	}

	a, err := auth.NewJWTAuthenticator(cfg.Auth.JWT, []byte(cfg.Auth.Secret))
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeAuth, err)
	}
	token, err := a.Sign(principal, opts.Roles, opts.TTL)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeAuth, err)
	}

	out := TokenOutput{
		Token:     token,
		Principal: principal,
		Roles:     opts.Roles,
		ExpiresAt: time.Now().Add(opts.TTL).UTC().Truncate(time.Second),
	}
	return f.Success(out, token+"\n")
}
