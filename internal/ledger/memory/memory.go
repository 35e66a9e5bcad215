// Package memory is an in-process ledger used by the devnet command and by
// tests. It follows the permission rules of the hosted ledger closely
// enough for the control surface to be exercised end to end.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/ledger"
	"github.com/Rorical/RoriRoles/internal/models"
)

var log = logging.Logger("ledger/memory")

// Features known to the in-memory ledger, in display order
const (
	FeatureShareholders models.Feature = "Shareholders"
	FeatureDividends    models.Feature = "Dividends"
	FeatureRestrictions models.Feature = "TransferRestrictions"
)

// Grantable roles come from the enabled features
var featureRoles = []struct {
	feature models.Feature
	roles   []models.Role
}{
	{models.FeaturePermissions, []models.Role{"PermissionsAdministrator"}},
	{FeatureShareholders, []models.Role{"ShareholdersAdministrator"}},
	{FeatureDividends, []models.Role{"DividendsAdministrator", "DividendsOperator"}},
	{FeatureRestrictions, []models.Role{"TransferRestrictionsAdministrator"}},
}

var (
	ErrUnknownToken        = xerrors.New("unknown security token")
	ErrPermissionsDisabled = xerrors.New("permissions feature is not enabled")
	ErrJobAlreadyRun       = xerrors.New("job has already been run")
)

type delegate struct {
	address     models.Address
	description string
	roles       []models.Role
}

type token struct {
	info      models.SecurityToken
	owner     models.Address
	features  map[models.Feature]bool
	delegates []*delegate
}

// Ledger is a thread-safe in-memory Backend
type Ledger struct {
	mu       sync.Mutex
	tokens   map[string]*token
	order    []string
	latency  time.Duration
	failures map[string]error
}

var _ ledger.Backend = (*Ledger)(nil)

// Option configures a Ledger
type Option func(*Ledger)

// WithLatency delays every query and job run by d
func WithLatency(d time.Duration) Option {
	return func(l *Ledger) {
		l.latency = d
	}
}

// New creates an empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		tokens:   make(map[string]*token),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddToken registers a token owned by owner with the given feature status.
// Features missing from the map start disabled.
func (l *Ledger) AddToken(owner models.Address, info models.SecurityToken, features map[models.Feature]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := &token{
		info:     info,
		owner:    owner,
		features: make(map[models.Feature]bool, len(featureRoles)),
	}
	for _, fr := range featureRoles {
		t.features[fr.feature] = features[fr.feature]
	}
	if _, ok := l.tokens[info.Symbol]; !ok {
		l.order = append(l.order, info.Symbol)
	}
	l.tokens[info.Symbol] = t
}

// Grant assigns a role without going through a job, for seeding
func (l *Ledger) Grant(symbol string, addr models.Address, role models.Role, description string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, err := l.token(symbol)
	if err != nil {
		return err
	}
	return l.assign(t, addr, role, description)
}

// Fail makes method return err until cleared with a nil err. Job execution
// failures are keyed as "<Method>.Run", e.g. "AssignRole.Run".
func (l *Ledger) Fail(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.failures, method)
		return
	}
	l.failures[method] = err
}

// Seed fills the ledger with a small demo portfolio owned by owner
func (l *Ledger) Seed(owner models.Address) {
	l.AddToken(owner, models.SecurityToken{Symbol: "ACME", Name: "Acme Preferred A", Address: "0x5fbdb2315678afecb367f032d93f642f64180aa3"},
		map[models.Feature]bool{models.FeaturePermissions: true, FeatureShareholders: true})
	l.AddToken(owner, models.SecurityToken{Symbol: "BOLT", Name: "Bolt Ventures Class B", Address: "0xe7f1725e7734ce288f8367e1bb143e90bb3f0512"},
		map[models.Feature]bool{FeatureDividends: true})
	l.AddToken(owner, models.SecurityToken{Symbol: "CRUX", Name: "Crux Realty Notes", Address: "0x9fe46736679d2d9a65f0992f2272de9f3c7fa6e0"},
		map[models.Feature]bool{models.FeaturePermissions: true, FeatureDividends: true, FeatureRestrictions: true})

	seed := []struct {
		symbol, addr, description string
		role                      models.Role
	}{
		{"ACME", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8", "Transfer agent", "ShareholdersAdministrator"},
		{"ACME", "0x70997970c51812dc3a010c7d01b50e0d17dc79c8", "Transfer agent", "PermissionsAdministrator"},
		{"ACME", "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc", "Compliance desk", "ShareholdersAdministrator"},
		{"CRUX", "0x90f79bf6eb2c4f870365e785982e1f101e93b906", "Paying agent", "DividendsOperator"},
	}
	for _, s := range seed {
		if err := l.Grant(s.symbol, models.Address(s.addr), s.role, s.description); err != nil {
			log.Errorw("seeding delegate", "token", s.symbol, "address", s.addr, "error", err)
		}
	}
}

func (l *Ledger) GetSecurityTokens(ctx context.Context, owner models.Address) ([]models.SecurityToken, error) {
	if err := l.wait(ctx, "GetSecurityTokens"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.SecurityToken, 0, len(l.order))
	for _, sym := range l.order {
		t := l.tokens[sym]
		if owner == "" || t.owner == owner {
			out = append(out, t.info)
		}
	}
	return out, nil
}

func (l *Ledger) GetFeatureStatus(ctx context.Context, symbol string) (map[models.Feature]bool, error) {
	if err := l.wait(ctx, "GetFeatureStatus"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.token(symbol)
	if err != nil {
		return nil, err
	}
	out := make(map[models.Feature]bool, len(t.features))
	for f, on := range t.features {
		out[f] = on
	}
	return out, nil
}

func (l *Ledger) GetGrantableRoles(ctx context.Context, symbol string) ([]models.Role, error) {
	if err := l.wait(ctx, "GetGrantableRoles"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.token(symbol)
	if err != nil {
		return nil, err
	}
	if !t.features[models.FeaturePermissions] {
		return nil, xerrors.Errorf("%s: %w", symbol, ErrPermissionsDisabled)
	}
	return t.grantable(), nil
}

func (l *Ledger) GetAllDelegates(ctx context.Context, symbol string) ([]models.Delegate, error) {
	if err := l.wait(ctx, "GetAllDelegates"); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.token(symbol)
	if err != nil {
		return nil, err
	}
	if !t.features[models.FeaturePermissions] {
		return nil, xerrors.Errorf("%s: %w", symbol, ErrPermissionsDisabled)
	}
	out := make([]models.Delegate, 0, len(t.delegates))
	for _, d := range t.delegates {
		out = append(out, models.Delegate{
			Address:     d.address,
			Description: d.description,
			Roles:       slices.Clone(d.roles),
		})
	}
	return out, nil
}

func (l *Ledger) EnableFeature(ctx context.Context, symbol string, feature models.Feature) (ledger.Job, error) {
	return l.submit(ctx, "EnableFeature", symbol, func(t *token) error {
		on, known := t.features[feature]
		if !known {
			return xerrors.Errorf("unknown feature %q", feature)
		}
		if on {
			return xerrors.Errorf("feature %s is already enabled on %s", feature, symbol)
		}
		t.features[feature] = true
		return nil
	})
}

func (l *Ledger) DisableFeature(ctx context.Context, symbol string, feature models.Feature) (ledger.Job, error) {
	return l.submit(ctx, "DisableFeature", symbol, func(t *token) error {
		on, known := t.features[feature]
		if !known {
			return xerrors.Errorf("unknown feature %q", feature)
		}
		if !on {
			return xerrors.Errorf("feature %s is not enabled on %s", feature, symbol)
		}
		t.features[feature] = false
		if feature == models.FeaturePermissions {
			// detaching the permission manager drops every delegation
			t.delegates = nil
		}
		return nil
	})
}

func (l *Ledger) AssignRole(ctx context.Context, symbol string, addr models.Address, role models.Role, description string) (ledger.Job, error) {
	return l.submit(ctx, "AssignRole", symbol, func(t *token) error {
		return l.assign(t, addr, role, description)
	})
}

func (l *Ledger) RevokeRole(ctx context.Context, symbol string, addr models.Address, role models.Role) (ledger.Job, error) {
	return l.submit(ctx, "RevokeRole", symbol, func(t *token) error {
		if !t.features[models.FeaturePermissions] {
			return ErrPermissionsDisabled
		}
		i := slices.IndexFunc(t.delegates, func(d *delegate) bool { return d.address == addr })
		if i < 0 {
			return xerrors.Errorf("%s is not a delegate of %s", addr, symbol)
		}
		d := t.delegates[i]
		j := slices.Index(d.roles, role)
		if j < 0 {
			return xerrors.Errorf("%s does not hold role %s on %s", addr, role, symbol)
		}
		d.roles = slices.Delete(d.roles, j, j+1)
		if len(d.roles) == 0 {
			t.delegates = slices.Delete(t.delegates, i, i+1)
		}
		return nil
	})
}

// assign requires l.mu
func (l *Ledger) assign(t *token, addr models.Address, role models.Role, description string) error {
	if !t.features[models.FeaturePermissions] {
		return ErrPermissionsDisabled
	}
	if !slices.Contains(t.grantable(), role) {
		return xerrors.Errorf("role %s is not grantable on %s", role, t.info.Symbol)
	}
	i := slices.IndexFunc(t.delegates, func(d *delegate) bool { return d.address == addr })
	if i < 0 {
		t.delegates = append(t.delegates, &delegate{address: addr, description: description, roles: []models.Role{role}})
		return nil
	}
	d := t.delegates[i]
	if slices.Contains(d.roles, role) {
		return xerrors.Errorf("%s already holds role %s on %s", addr, role, t.info.Symbol)
	}
	d.roles = append(d.roles, role)
	if description != "" {
		d.description = description
	}
	return nil
}

func (t *token) grantable() []models.Role {
	out := make([]models.Role, 0)
	for _, fr := range featureRoles {
		if t.features[fr.feature] {
			out = append(out, fr.roles...)
		}
	}
	return out
}

// token requires l.mu
func (l *Ledger) token(symbol string) (*token, error) {
	t, ok := l.tokens[symbol]
	if !ok {
		return nil, xerrors.Errorf("%s: %w", symbol, ErrUnknownToken)
	}
	return t, nil
}

func (l *Ledger) submit(ctx context.Context, method, symbol string, apply func(*token) error) (ledger.Job, error) {
	if err := l.wait(ctx, method); err != nil {
		return nil, err
	}
	l.mu.Lock()
	_, err := l.token(symbol)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	j := &job{
		id:     uuid.NewString(),
		method: method,
		symbol: symbol,
		ledger: l,
		apply:  apply,
	}
	log.Debugw("job submitted", "job", j.id, "method", method, "token", symbol)
	return j, nil
}

// wait applies the configured latency and injected failure for method
func (l *Ledger) wait(ctx context.Context, method string) error {
	if l.latency > 0 {
		t := time.NewTimer(l.latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.failures[method]; err != nil {
		return err
	}
	return nil
}

type job struct {
	id     string
	method string
	symbol string
	ledger *Ledger
	apply  func(*token) error

	mu  sync.Mutex
	ran bool
}

func (j *job) ID() string {
	return j.id
}

func (j *job) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.ran {
		return ErrJobAlreadyRun
	}
	j.ran = true

	if err := j.ledger.wait(ctx, j.method+".Run"); err != nil {
		return err
	}
	l := j.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	t, err := l.token(j.symbol)
	if err != nil {
		return err
	}
	if err := j.apply(t); err != nil {
		return xerrors.Errorf("%s on %s: %w", j.method, j.symbol, err)
	}
	log.Infow("job applied", "job", j.id, "method", j.method, "token", j.symbol)
	return nil
}
