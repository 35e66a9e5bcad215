package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/app"
	"github.com/Rorical/RoriRoles/internal/core"
	"github.com/Rorical/RoriRoles/internal/models"
)

var (
	timeoutFlag     time.Duration
	yesFlag         bool
	descriptionFlag string
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List the security tokens owned by your wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
		defer cancel()

		backend, closer, err := app.DialLedger(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer()
		if backend == nil {
			return errNotConfigured
		}

		tokens, err := backend.GetSecurityTokens(ctx, cfg.GetWallet())
		if err != nil {
			return xerrors.Errorf("loading security tokens: %w", err)
		}
		t := newTable("SYMBOL", "NAME", "ADDRESS")
		for _, tok := range tokens {
			t.Row(tok.Symbol, tok.Name, string(tok.Address))
		}
		fmt.Println(t.Render())
		return nil
	},
}

var featuresCmd = &cobra.Command{
	Use:   "features <token>",
	Short: "Show which features are enabled on a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, args[0], func(ctx context.Context, rs *core.RoleService, state models.ApplicationState) error {
			printFeatures(state)
			return nil
		})
	},
}

var delegatesCmd = &cobra.Command{
	Use:   "delegates <token>",
	Short: "List delegates and their roles on a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, args[0], func(ctx context.Context, rs *core.RoleService, state models.ApplicationState) error {
			if !state.PermissionsEnabled() {
				return xerrors.Errorf("permissions are disabled on %s; run: roriroles permissions enable %s", args[0], args[0])
			}
			printRecords(state)
			return nil
		})
	},
}

var permissionsCmd = &cobra.Command{
	Use:       "permissions enable|disable <token>",
	Short:     "Turn role management on or off for a token",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"enable", "disable"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enable bool
		switch args[0] {
		case "enable":
			enable = true
		case "disable":
		default:
			return xerrors.Errorf("expected enable or disable, got %q", args[0])
		}
		token := args[1]
		return withService(cmd, token, func(ctx context.Context, rs *core.RoleService, state models.ApplicationState) error {
			if state.PermissionsEnabled() == enable {
				fmt.Printf("Permissions already %sd on %s\n", args[0], token)
				return nil
			}
			if !confirm(fmt.Sprintf("%s permissions on %s", args[0], token)) {
				return errDeclined
			}
			rs.TogglePermissions(enable)
			state, err := settle(ctx, rs)
			if err != nil {
				return err
			}
			printFeatures(state)
			return nil
		})
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <token> <address> <role>",
	Short: "Grant a role to a delegate",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, address, role := args[0], args[1], models.Role(args[2])
		return withService(cmd, token, func(ctx context.Context, rs *core.RoleService, state models.ApplicationState) error {
			if !confirm(fmt.Sprintf("Grant %s to %s on %s", role, address, token)) {
				return errDeclined
			}
			rs.AssignRole(address, role, descriptionFlag)
			state, err := settle(ctx, rs)
			if err != nil {
				return err
			}
			printRecords(state)
			return nil
		})
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <token> <address> <role>",
	Short: "Take a role away from a delegate",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, role := args[0], models.Role(args[2])
		address, err := models.ParseAddress(args[1])
		if err != nil {
			return err
		}
		return withService(cmd, token, func(ctx context.Context, rs *core.RoleService, state models.ApplicationState) error {
			if !confirm(fmt.Sprintf("Revoke %s from %s on %s", role, address, token)) {
				return errDeclined
			}
			rs.RevokeRole(address, role)
			state, err := settle(ctx, rs)
			if err != nil {
				return err
			}
			printRecords(state)
			return nil
		})
	},
}

var (
	errNotConfigured = xerrors.New("ledger endpoint is not configured; run: roriroles profile add")
	errDeclined      = xerrors.New("operation cancelled")
)

// withService starts a RoleService on token without a UI, waits for the
// loaders to settle and hands the resulting state to fn.
func withService(cmd *cobra.Command, token string, fn func(ctx context.Context, rs *core.RoleService, state models.ApplicationState) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	defer cancel()

	backend, closer, err := app.DialLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer()
	if backend == nil {
		return errNotConfigured
	}

	rs := core.NewRoleService(cfg, backend, nil, core.Options{Token: token})
	rs.Start()
	defer rs.Stop()

	state, err := settle(ctx, rs)
	if err != nil {
		return err
	}
	return fn(ctx, rs, state)
}

// settle waits for the store to go idle and turns a reported error into a
// returned one
func settle(ctx context.Context, rs *core.RoleService) (models.ApplicationState, error) {
	snap, err := rs.Store().WaitSettled(ctx)
	if err != nil {
		return models.ApplicationState{}, xerrors.Errorf("waiting for the ledger: %w", err)
	}
	if snap.State.Error != "" {
		return snap.State, xerrors.New(snap.State.Error)
	}
	return snap.State, nil
}

func confirm(label string) bool {
	if yesFlag {
		return true
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err == nil
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers(headers...)
}

func printFeatures(state models.ApplicationState) {
	t := newTable("FEATURE", "STATUS")
	t.Row(string(models.FeaturePermissions), onOff(state.PermissionsEnabled()))
	for _, f := range state.SortedFeatures() {
		t.Row(string(f), onOff(state.Features[f]))
	}
	fmt.Println(t.Render())
	if len(state.AvailableRoles) > 0 {
		fmt.Println("Grantable roles:")
		for _, r := range state.AvailableRoles {
			fmt.Printf("  %s\n", r)
		}
	}
}

func printRecords(state models.ApplicationState) {
	if len(state.Records) == 0 {
		fmt.Println("No roles assigned")
		return
	}
	t := newTable("ADDRESS", "ROLE", "DESCRIPTION")
	for _, r := range state.Records {
		t.Row(string(r.Address), string(r.Role), r.Description)
	}
	fmt.Println(t.Render())
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func init() {
	for _, c := range []*cobra.Command{tokensCmd, featuresCmd, delegatesCmd, permissionsCmd, assignCmd, revokeCmd} {
		c.Flags().DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "give up after this long")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{permissionsCmd, assignCmd, revokeCmd} {
		c.Flags().BoolVarP(&yesFlag, "yes", "y", false, "do not ask for confirmation")
	}
	assignCmd.Flags().StringVar(&descriptionFlag, "description", "", "who the delegate is")
}
