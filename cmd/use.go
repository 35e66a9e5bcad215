package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"
)

var useCmd = &cobra.Command{
	Use:         "use [profile-name]",
	Short:       "Switch to a profile and start the terminal UI",
	Long:        `Make the specified profile active and immediately open the terminal UI.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{tuiAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		profileName := args[0]

		if err := cfg.UseProfile(profileName); err != nil {
			return xerrors.Errorf("switching profile: %w", err)
		}

		// Save config with new active profile
		if err := cfg.Save(); err != nil {
			return xerrors.Errorf("saving config: %w", err)
		}

		return runTUI()
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}
