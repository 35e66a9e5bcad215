package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/app"
	"github.com/Rorical/RoriRoles/internal/config"
	"github.com/Rorical/RoriRoles/internal/telemetry"
)

// tuiAnnotation marks commands that own the terminal, so logs go to a file
const tuiAnnotation = "tui"

var (
	profileFlag     string
	logLevelFlag    string
	metricsAddrFlag string

	// cfg is loaded once before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "roriroles",
	Short: "Delegated permissions for tokenized assets",
	Long: `RoriRoles manages who may administer a security token: turn role
management on or off, and assign or revoke delegate roles.

Run without a subcommand to open the terminal UI.`,
	Annotations:       map[string]string{tuiAnnotation: "true"},
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile to use instead of the active one")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&metricsAddrFlag, "metrics-addr", "", "serve prometheus metrics on this address")

	// Add subcommands
	rootCmd.AddCommand(profileCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return err
	}
	if profileFlag != "" {
		if err := cfg.UseProfile(profileFlag); err != nil {
			return err
		}
	}

	level := cfg.GetLogLevel()
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	file := ""
	if cmd.Annotations[tuiAnnotation] == "true" {
		file = cfg.GetLogFile()
	}
	return telemetry.SetupLogging(level, file)
}

// runTUI returns instead of exiting so the application always stops
func runTUI() error {
	application, err := app.NewApplication(cfg, metricsAddrFlag)
	if err != nil {
		return xerrors.Errorf("creating application: %w", err)
	}
	defer application.Stop()

	if err := application.Start(); err != nil {
		return xerrors.Errorf("application: %w", err)
	}
	return nil
}
