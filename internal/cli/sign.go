package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/contractsig/editgate"
	"github.com/jonwraymond/contractsig/internal/app"
	"github.com/jonwraymond/contractsig/signature"
)

// SignOptions holds flags for the sign command.
type SignOptions struct {
	*RootOptions
	Payload     string
	PayloadFile string
}

// MutationOutput is the success payload of sign and unsign.
type MutationOutput struct {
	ContractID string         `json:"contract_id"`
	Role       signature.Role `json:"role"`
	Action     string         `json:"action"`
}

// NewSignCommand creates the sign command.
func NewSignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sign <contract-id> <role>",
		Short: "Save a signature to the remote store",
		Long: `Save a signature for one role. The remote store must accept the write;
the local cache and mirror are only updated after it does.

Example:
  contractsig sign abc123 designer --payload '{"image":"data:image/png;base64,..."}'`,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.Payload, "payload", "", "signature payload as JSON")
	cmd.Flags().StringVar(&opts.PayloadFile, "payload-file", "", "read the payload from a file")
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-file")
	cmd.MarkFlagsOneRequired("payload", "payload-file")

	return cmd
}

func runSign(opts *SignOptions, cmd *cobra.Command, contractID, roleName string) error {
	f := newFormatter(opts.RootOptions, cmd)

	role, err := signature.ParseRole(roleName)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeArgument, err)
	}

	payload := []byte(opts.Payload)
	if opts.PayloadFile != "" {
		if payload, err = os.ReadFile(opts.PayloadFile); err != nil {
			return f.Fail(ExitCommandError, ErrCodeArgument, err)
		}
	}
	if err := signature.ValidatePayload(payload); err != nil {
		return f.Fail(ExitCommandError, ErrCodeArgument, err)
	}

	return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app.App, f *OutputFormatter) error {
		res := a.Service.SaveSignature(ctx, contractID, role, json.RawMessage(payload))
		return reportMutation(f, res, MutationOutput{ContractID: contractID, Role: role, Action: "signed"})
	})
}

// NewUnsignCommand creates the unsign command.
func NewUnsignCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unsign <contract-id> <role>",
		Short:         "Remove a signature from the remote store",
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			role, err := signature.ParseRole(args[1])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeArgument, err)
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				res := a.Service.RemoveSignature(ctx, args[0], role)
				return reportMutation(f, res, MutationOutput{ContractID: args[0], Role: role, Action: "unsigned"})
			})
		},
	}
}

func reportMutation(f *OutputFormatter, res editgate.MutationResult, out MutationOutput) error {
	if !res.Success {
		if signature.IsInvalidArgument(res.Err) {
			return f.Fail(ExitCommandError, ErrCodeArgument, res.Err)
		}
		return f.Fail(ExitFailure, ErrCodeRemote, res.Err)
	}
	return f.Success(out, fmt.Sprintf("%s %s for %s\n", out.Action, out.Role, out.ContractID))
}
