package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/config"
	"github.com/Rorical/RoriRoles/internal/ledger/memory"
	"github.com/Rorical/RoriRoles/internal/ledger/rpc"
	"github.com/Rorical/RoriRoles/internal/models"
	"github.com/Rorical/RoriRoles/internal/telemetry"
)

var devnetLog = logging.Logger("devnet")

var (
	listenFlag    string
	latencyFlag   time.Duration
	authTokenFlag string
	ownerFlag     string
)

var devnetCmd = &cobra.Command{
	Use:   "devnet",
	Short: "Serve an in-memory ledger with demo tokens",
	Long: `Serve an in-memory ledger over JSON-RPC at /rpc/v0. It is seeded with
three demo security tokens owned by --owner, which is the wallet of the
default profile.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := models.ParseAddress(ownerFlag)
		if err != nil {
			return xerrors.Errorf("owner: %w", err)
		}

		ledger := memory.New(memory.WithLatency(latencyFlag))
		ledger.Seed(owner)

		mux := http.NewServeMux()
		mux.Handle("/rpc/v0", rpc.NewHandler(ledger, authTokenFlag))
		srv := &http.Server{
			Addr:              listenFlag,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			devnetLog.Infow("serving devnet ledger", "addr", listenFlag, "owner", owner, "latency", latencyFlag)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return xerrors.Errorf("devnet server: %w", err)
			}
			return nil
		})
		if metricsAddrFlag != "" {
			g.Go(func() error {
				return telemetry.ServeMetrics(ctx, metricsAddrFlag, telemetry.NewRegistry())
			})
		}

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var result *multierror.Error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, xerrors.Errorf("shutting down devnet: %w", err))
		}
		if err := g.Wait(); err != nil {
			result = multierror.Append(result, err)
		}
		devnetLog.Infow("devnet stopped")
		return result.ErrorOrNil()
	},
}

func init() {
	devnetCmd.Flags().StringVar(&listenFlag, "listen", "127.0.0.1:3456", "address to serve JSON-RPC on")
	devnetCmd.Flags().DurationVar(&latencyFlag, "latency", 300*time.Millisecond, "simulated delay of every ledger call")
	devnetCmd.Flags().StringVar(&authTokenFlag, "auth-token", "", "require this bearer token")
	devnetCmd.Flags().StringVar(&ownerFlag, "owner", config.DevnetWallet, "wallet that owns the demo tokens")
	rootCmd.AddCommand(devnetCmd)
}
