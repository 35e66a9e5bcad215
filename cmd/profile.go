package cmd

import (
	"fmt"
	"log"
	"slices"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriRoles/internal/config"
	"github.com/Rorical/RoriRoles/internal/models"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage ledger profiles",
	Long:  `Manage ledger profiles: which node to talk to and which wallet you act as.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Println("Available Profiles:")
		for _, name := range profileNames(cfg, "") {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", name, marker)
			fmt.Printf("    Endpoint: %s\n", profile.Endpoint)
			fmt.Printf("    Wallet: %s\n", profile.Wallet)
			if profile.DefaultToken != "" {
				fmt.Printf("    Default token: %s\n", profile.DefaultToken)
			}
			fmt.Println()
		}
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		profileName := cfg.ActiveProfile
		if len(args) > 0 {
			profileName = args[0]
		}
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		fmt.Printf("Profile: %s\n", profileName)
		fmt.Printf("Endpoint: %s\n", profile.Endpoint)
		fmt.Printf("Wallet: %s\n", profile.Wallet)
		fmt.Printf("Default token: %s\n", profile.DefaultToken)
		hasToken := "Not set"
		if profile.AuthToken != "" {
			hasToken = "Set (hidden for security)"
		}
		fmt.Printf("Auth token: %s\n", hasToken)

		if profileName == cfg.ActiveProfile {
			if err := cfg.Validate(); err != nil {
				fmt.Printf("\nProblems:\n%v\n", err)
			}
		}
	},
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var profileName string
		var err error
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Profile name",
			}
			profileName, err = prompt.Run()
			if err != nil {
				log.Fatalf("Prompt failed: %v", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.Profile{
			Endpoint: config.DevnetEndpoint,
			Wallet:   config.DevnetWallet,
		})
		if err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
	},
}

var setProfileCmd = &cobra.Command{
	Use:     "set [profile-name]",
	Aliases: []string{"edit"},
	Short:   "Edit an existing profile",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		profileName, err := pickProfile(args, "Select profile to edit", "")
		if err != nil {
			log.Fatalf("Selection failed: %v", err)
		}

		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		profile, err = promptProfile(profile)
		if err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}
		cfg.Profiles[profileName] = profile

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
	},
}

var removeProfileCmd = &cobra.Command{
	Use:     "remove [profile-name]",
	Aliases: []string{"delete"},
	Short:   "Remove a profile",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		profileName, err := pickProfile(args, "Select profile to remove", "")
		if err != nil {
			log.Fatalf("Selection failed: %v", err)
		}

		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		// Confirm deletion
		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Remove profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Println("Removal cancelled")
			return
		}

		delete(cfg.Profiles, profileName)

		// Check if we're deleting the active profile
		if cfg.ActiveProfile == profileName {
			remaining := profileNames(cfg, "")
			if len(remaining) > 0 {
				cfg.ActiveProfile = remaining[0]
			} else {
				// If this was the last profile, fall back to the devnet one
				cfg.ActiveProfile = "default"
				cfg.Profiles["default"] = config.Profile{
					Endpoint: config.DevnetEndpoint,
					Wallet:   config.DevnetWallet,
				}
			}
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' removed successfully!\n", profileName)
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && len(profileNames(cfg, cfg.ActiveProfile)) == 0 {
			fmt.Println("No other profiles available to switch to")
			return
		}
		profileName, err := pickProfile(args, "Select profile to switch to", cfg.ActiveProfile)
		if err != nil {
			log.Fatalf("Selection failed: %v", err)
		}

		if err := cfg.UseProfile(profileName); err != nil {
			log.Fatalf("Failed to switch profile: %v", err)
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Switched to profile '%s'\n", profileName)
	},
}

// promptProfile asks for every profile field, defaulting to the current values
func promptProfile(profile config.Profile) (config.Profile, error) {
	endpointPrompt := promptui.Prompt{
		Label:   "Ledger endpoint",
		Default: profile.Endpoint,
	}
	endpoint, err := endpointPrompt.Run()
	if err != nil {
		return profile, err
	}

	authPrompt := promptui.Prompt{
		Label:   "Auth token (optional)",
		Default: profile.AuthToken,
		Mask:    '*',
	}
	authToken, err := authPrompt.Run()
	if err != nil {
		return profile, err
	}

	walletPrompt := promptui.Prompt{
		Label:   "Wallet address",
		Default: profile.Wallet,
		Validate: func(s string) error {
			_, err := models.ParseAddress(s)
			return err
		},
	}
	wallet, err := walletPrompt.Run()
	if err != nil {
		return profile, err
	}

	tokenPrompt := promptui.Prompt{
		Label:   "Default token symbol (optional)",
		Default: profile.DefaultToken,
	}
	defaultToken, err := tokenPrompt.Run()
	if err != nil {
		return profile, err
	}

	return config.Profile{
		Endpoint:     endpoint,
		AuthToken:    authToken,
		Wallet:       wallet,
		DefaultToken: defaultToken,
	}, nil
}

// pickProfile returns args[0] or lets the user select one of the profiles
func pickProfile(args []string, label, exclude string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	names := profileNames(cfg, exclude)
	if len(names) == 0 {
		return "", fmt.Errorf("no profiles available")
	}
	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	return name, err
}

func profileNames(c *config.Config, exclude string) []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		if name != exclude {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func init() {
	// Add subcommands to profile
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(setProfileCmd)
	profileCmd.AddCommand(removeProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
