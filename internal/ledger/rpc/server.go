package rpc

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/ledger"
	"github.com/Rorical/RoriRoles/internal/models"
)

var log = logging.Logger("ledger/rpc")

// ErrUnknownJob is returned by RunJob for an ID that was never issued, has
// already been run or expired.
var ErrUnknownJob = xerrors.New("unknown job")

// JobTTL is how long a submitted job waits for RunJob before it is dropped
const JobTTL = 10 * time.Minute

type heldJob struct {
	job     ledger.Job
	expires time.Time
}

// serverAPI adapts a Backend to the wire API, holding submitted jobs until
// they are run or expire.
type serverAPI struct {
	backend ledger.Backend
	ttl     time.Duration
	now     func() time.Time

	mu   sync.Mutex
	jobs map[JobID]heldJob
}

func newServerAPI(backend ledger.Backend, ttl time.Duration) *serverAPI {
	return &serverAPI{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		jobs:    make(map[JobID]heldJob),
	}
}

var _ API = (*serverAPI)(nil)

// NewHandler serves backend at the root path. A non-empty authToken is
// required as a bearer token.
func NewHandler(backend ledger.Backend, authToken string) http.Handler {
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register(Namespace, newServerAPI(backend, JobTTL))
	if authToken == "" {
		return rpcServer
	}
	want := []byte("Bearer " + authToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			log.Warnw("rejecting unauthenticated request", "remote", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		rpcServer.ServeHTTP(w, r)
	})
}

func (s *serverAPI) GetSecurityTokens(ctx context.Context, owner models.Address) ([]models.SecurityToken, error) {
	return s.backend.GetSecurityTokens(ctx, owner)
}

func (s *serverAPI) GetFeatureStatus(ctx context.Context, token string) (map[models.Feature]bool, error) {
	return s.backend.GetFeatureStatus(ctx, token)
}

func (s *serverAPI) GetGrantableRoles(ctx context.Context, token string) ([]models.Role, error) {
	return s.backend.GetGrantableRoles(ctx, token)
}

func (s *serverAPI) GetAllDelegates(ctx context.Context, token string) ([]models.Delegate, error) {
	return s.backend.GetAllDelegates(ctx, token)
}

func (s *serverAPI) EnableFeature(ctx context.Context, token string, feature models.Feature) (JobID, error) {
	return s.hold(s.backend.EnableFeature(ctx, token, feature))
}

func (s *serverAPI) DisableFeature(ctx context.Context, token string, feature models.Feature) (JobID, error) {
	return s.hold(s.backend.DisableFeature(ctx, token, feature))
}

func (s *serverAPI) AssignRole(ctx context.Context, token string, delegate models.Address, role models.Role, description string) (JobID, error) {
	return s.hold(s.backend.AssignRole(ctx, token, delegate, role, description))
}

func (s *serverAPI) RevokeRole(ctx context.Context, token string, delegate models.Address, role models.Role) (JobID, error) {
	return s.hold(s.backend.RevokeRole(ctx, token, delegate, role))
}

func (s *serverAPI) RunJob(ctx context.Context, id JobID) error {
	s.mu.Lock()
	held, ok := s.jobs[id]
	delete(s.jobs, id)
	s.mu.Unlock()
	if !ok || !s.now().Before(held.expires) {
		return xerrors.Errorf("%s: %w", id, ErrUnknownJob)
	}
	return held.job.Run(ctx)
}

func (s *serverAPI) hold(job ledger.Job, err error) (JobID, error) {
	if err != nil {
		return "", err
	}
	id := JobID(job.ID())
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for held, j := range s.jobs {
		if !now.Before(j.expires) {
			log.Debugw("dropping expired job", "job", held)
			delete(s.jobs, held)
		}
	}
	s.jobs[id] = heldJob{job: job, expires: now.Add(s.ttl)}
	return id, nil
}
