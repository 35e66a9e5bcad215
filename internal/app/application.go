package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/filecoin-project/go-jsonrpc"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/config"
	"github.com/Rorical/RoriRoles/internal/core"
	"github.com/Rorical/RoriRoles/internal/dispatcher"
	"github.com/Rorical/RoriRoles/internal/eventbus"
	"github.com/Rorical/RoriRoles/internal/ledger"
	"github.com/Rorical/RoriRoles/internal/ledger/rpc"
	"github.com/Rorical/RoriRoles/internal/models"
	"github.com/Rorical/RoriRoles/internal/telemetry"
	"github.com/Rorical/RoriRoles/internal/update"
)

var log = logging.Logger("app")

// Application manages the complete application lifecycle
type Application struct {
	config      *config.Config
	eventBus    *eventbus.EventBus
	dispatcher  *dispatcher.EventDispatcher
	service     *core.RoleService
	model       *AppModel
	closer      jsonrpc.ClientCloser
	metricsAddr string
}

type AppModel struct {
	appModel   models.AppModel
	widgets    *update.Widgets
	dispatcher *dispatcher.EventDispatcher
}

// DialLedger connects to the active profile's ledger node. A profile
// without an endpoint yields a nil backend and no error.
func DialLedger(ctx context.Context, cfg *config.Config) (ledger.Backend, jsonrpc.ClientCloser, error) {
	if !cfg.IsValid() {
		return nil, func() {}, nil
	}
	client, closer, err := rpc.NewClient(ctx, cfg.GetEndpoint(), cfg.GetAuthToken())
	if err != nil {
		return nil, nil, err
	}
	return client, closer, nil
}

// NewApplication builds the TUI. metricsAddr may be empty.
func NewApplication(cfg *config.Config, metricsAddr string) (*Application, error) {
	backend, closer, err := DialLedger(context.Background(), cfg)
	if err != nil {
		// the UI still starts and shows why nothing loads
		log.Errorw("connecting to ledger", "endpoint", cfg.GetEndpoint(), "error", err)
		backend, closer = nil, func() {}
	}

	// Create event bus
	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		log.Warnw("event bus", "operation", e.Operation, "error", e.Err)
	})

	// Create dispatcher
	disp := dispatcher.NewEventDispatcher(eb)

	// The service always exists; without a backend it reports why
	service := core.NewRoleService(cfg, backend, eb, core.Options{Confirm: true})

	model := &AppModel{
		appModel:   createInitialAppModel(cfg, service),
		widgets:    update.NewWidgets(),
		dispatcher: disp,
	}

	return &Application{
		config:      cfg,
		eventBus:    eb,
		dispatcher:  disp,
		service:     service,
		model:       model,
		closer:      closer,
		metricsAddr: metricsAddr,
	}, nil
}

// Start runs the UI until the user quits
func (app *Application) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.service.Start()

	g, ctx := errgroup.WithContext(ctx)
	if app.metricsAddr != "" {
		g.Go(func() error {
			return telemetry.ServeMetrics(ctx, app.metricsAddr, telemetry.NewRegistry())
		})
	}
	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(app.model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return xerrors.Errorf("running UI: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (app *Application) Stop() {
	app.dispatcher.Stop()
	app.service.Stop()
	app.eventBus.Close()
	app.closer()
}

func createInitialAppModel(cfg *config.Config, service *core.RoleService) models.AppModel {
	// State arrives from the core as the single source of truth
	return models.AppModel{
		Status:       "Starting",
		ServiceReady: service.IsReady(),
		Wallet:       cfg.GetWallet(),
		Endpoint:     cfg.GetEndpoint(),
		Focus:        models.TokensPane,
	}
}
