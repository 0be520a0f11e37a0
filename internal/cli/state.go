package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/contractsig/editgate"
	"github.com/jonwraymond/contractsig/internal/app"
	"github.com/jonwraymond/contractsig/signature"
)

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state <contract-id>",
		Short: "Show the signature state of a contract",
		Long: `Resolve the signature state of a contract against the configured stores.

The source field reports which tier answered: remote when the durable store
confirmed it, mirror when it was rebuilt from the local mirror, default when
neither had anything.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				st := a.Service.GetSignatureState(ctx, args[0])
				return f.Success(st, formatState(args[0], st))
			})
		},
	}
}

// NewCanEditCommand creates the can-edit command.
func NewCanEditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "can-edit <contract-id>",
		Short: "Report whether a contract may be edited",
		Long: `Apply the edit gate to a contract. A contract is locked once the designer
has signed; the client's signature alone never locks it.

Exits 1 when the contract is locked.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				d := a.Service.CanEditContract(ctx, args[0])
				if err := f.Success(d, formatDecision(d)); err != nil {
					return err
				}
				if !d.CanEdit {
					return &ExitError{Code: ExitFailure, Message: "contract is locked", Reported: true}
				}
				return nil
			})
		},
	}
}

func formatState(contractID string, st signature.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "contract:  %s\n", contractID)
	fmt.Fprintf(&b, "designer:  %s\n", formatRecord(st.DesignerSignature))
	fmt.Fprintf(&b, "client:    %s\n", formatRecord(st.ClientSignature))
	fmt.Fprintf(&b, "source:    %s\n", st.Source)
	fmt.Fprintf(&b, "checked:   %s\n", st.LastChecked.Format(time.RFC3339))
	return b.String()
}

func formatRecord(r *signature.Record) string {
	if r == nil {
		return "unsigned"
	}
	if r.SignedAt.IsZero() {
		return "signed"
	}
	return "signed " + r.SignedAt.Format(time.RFC3339)
}

func formatDecision(d editgate.ContractDecision) string {
	if d.CanEdit {
		return "editable\n"
	}
	return "locked: " + d.Reason + "\n"
}
