package rpc

import (
	"context"
	"net/http"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/ledger"
	"github.com/Rorical/RoriRoles/internal/models"
)

// Client implements ledger.Backend on top of a remote API
type Client struct {
	api API
}

var _ ledger.Backend = (*Client)(nil)

// NewClient dials a ledger node. authToken, when set, is sent as a bearer
// token on every request.
func NewClient(ctx context.Context, addr, authToken string, opts ...jsonrpc.Option) (*Client, jsonrpc.ClientCloser, error) {
	header := http.Header{}
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}

	var res APIStruct
	opts = append([]jsonrpc.Option{jsonrpc.WithTimeout(2 * time.Minute)}, opts...)
	closer, err := jsonrpc.NewMergeClient(ctx, addr, Namespace,
		[]interface{}{
			&res.Internal,
		},
		header,
		opts...,
	)
	if err != nil {
		return nil, nil, xerrors.Errorf("dialing ledger at %s: %w", addr, err)
	}
	return &Client{api: &res}, closer, nil
}

// NewClientFromAPI wraps an already constructed API
func NewClientFromAPI(api API) *Client {
	return &Client{api: api}
}

func (c *Client) GetSecurityTokens(ctx context.Context, owner models.Address) ([]models.SecurityToken, error) {
	return c.api.GetSecurityTokens(ctx, owner)
}

func (c *Client) GetFeatureStatus(ctx context.Context, token string) (map[models.Feature]bool, error) {
	return c.api.GetFeatureStatus(ctx, token)
}

func (c *Client) GetGrantableRoles(ctx context.Context, token string) ([]models.Role, error) {
	return c.api.GetGrantableRoles(ctx, token)
}

func (c *Client) GetAllDelegates(ctx context.Context, token string) ([]models.Delegate, error) {
	return c.api.GetAllDelegates(ctx, token)
}

func (c *Client) EnableFeature(ctx context.Context, token string, feature models.Feature) (ledger.Job, error) {
	return c.job(c.api.EnableFeature(ctx, token, feature))
}

func (c *Client) DisableFeature(ctx context.Context, token string, feature models.Feature) (ledger.Job, error) {
	return c.job(c.api.DisableFeature(ctx, token, feature))
}

func (c *Client) AssignRole(ctx context.Context, token string, delegate models.Address, role models.Role, description string) (ledger.Job, error) {
	return c.job(c.api.AssignRole(ctx, token, delegate, role, description))
}

func (c *Client) RevokeRole(ctx context.Context, token string, delegate models.Address, role models.Role) (ledger.Job, error) {
	return c.job(c.api.RevokeRole(ctx, token, delegate, role))
}

func (c *Client) job(id JobID, err error) (ledger.Job, error) {
	if err != nil {
		return nil, err
	}
	return &remoteJob{id: id, api: c.api}, nil
}

type remoteJob struct {
	id  JobID
	api API
}

func (j *remoteJob) ID() string {
	return string(j.id)
}

func (j *remoteJob) Run(ctx context.Context) error {
	return j.api.RunJob(ctx, j.id)
}
