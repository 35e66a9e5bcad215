package rpc

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriRoles/internal/ledger/memory"
	"github.com/Rorical/RoriRoles/internal/models"
)

const owner = models.Address("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")

func newTestClient(t *testing.T, serverToken, clientToken string) (*Client, *memory.Ledger) {
	t.Helper()
	mem := memory.New()
	mem.Seed(owner)

	srv := httptest.NewServer(NewHandler(mem, serverToken))
	t.Cleanup(srv.Close)

	client, closer, err := NewClient(context.Background(), srv.URL, clientToken)
	require.NoError(t, err)
	t.Cleanup(closer)
	return client, mem
}

func TestClientQueries(t *testing.T) {
	client, _ := newTestClient(t, "", "")
	ctx := context.Background()

	tokens, err := client.GetSecurityTokens(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, models.SecurityToken{
		Symbol:  "ACME",
		Name:    "Acme Preferred A",
		Address: "0x5fbdb2315678afecb367f032d93f642f64180aa3",
	}, tokens[0])

	status, err := client.GetFeatureStatus(ctx, "ACME")
	require.NoError(t, err)
	assert.True(t, status[models.FeaturePermissions])
	assert.True(t, status[memory.FeatureShareholders])

	roles, err := client.GetGrantableRoles(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, []models.Role{"PermissionsAdministrator", "ShareholdersAdministrator"}, roles)

	delegates, err := client.GetAllDelegates(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, delegates, 2)
	assert.Equal(t, "Transfer agent", delegates[0].Description)
}

func TestClientJobs(t *testing.T) {
	client, mem := newTestClient(t, "", "")
	ctx := context.Background()
	bob := models.Address("0x15d34aaf54267db7d7c367839aaf71a00a2c6a65")

	job, err := client.AssignRole(ctx, "ACME", bob, "ShareholdersAdministrator", "Registrar")
	require.NoError(t, err)
	require.NotEmpty(t, job.ID())

	delegates, err := mem.GetAllDelegates(ctx, "ACME")
	require.NoError(t, err)
	assert.Len(t, delegates, 2, "submitted but not run")

	require.NoError(t, job.Run(ctx))
	delegates, err = mem.GetAllDelegates(ctx, "ACME")
	require.NoError(t, err)
	assert.Len(t, delegates, 3)

	// the server forgets a job once it has been run
	err = job.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrUnknownJob.Error())
}

func TestClientSurfacesBackendErrors(t *testing.T) {
	client, _ := newTestClient(t, "", "")
	ctx := context.Background()

	_, err := client.GetAllDelegates(ctx, "BOLT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), memory.ErrPermissionsDisabled.Error())

	job, err := client.DisableFeature(ctx, "BOLT", models.FeaturePermissions)
	require.NoError(t, err)
	err = job.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")

	job, err = client.EnableFeature(ctx, "BOLT", models.FeaturePermissions)
	require.NoError(t, err)
	require.NoError(t, job.Run(ctx))

	roles, err := client.GetGrantableRoles(ctx, "BOLT")
	require.NoError(t, err)
	assert.Contains(t, roles, models.Role("DividendsOperator"))
}

func TestHandlerRequiresAuthToken(t *testing.T) {
	client, _ := newTestClient(t, "s3cret", "wrong")
	_, err := client.GetSecurityTokens(context.Background(), owner)
	require.Error(t, err)

	client, _ = newTestClient(t, "s3cret", "s3cret")
	tokens, err := client.GetSecurityTokens(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, tokens, 3)
}

func TestRevokeOverRPC(t *testing.T) {
	client, _ := newTestClient(t, "", "")
	ctx := context.Background()
	agent := models.Address("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")

	job, err := client.RevokeRole(ctx, "ACME", agent, "PermissionsAdministrator")
	require.NoError(t, err)
	require.NoError(t, job.Run(ctx))

	delegates, err := client.GetAllDelegates(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, delegates, 2)
	assert.Equal(t, []models.Role{"ShareholdersAdministrator"}, delegates[0].Roles)
}

func TestUnrunJobsExpire(t *testing.T) {
	mem := memory.New()
	mem.Seed(owner)
	api := newServerAPI(mem, time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	api.now = func() time.Time { return clock }
	ctx := context.Background()
	bob := models.Address("0x15d34aaf54267db7d7c367839aaf71a00a2c6a65")

	stale, err := api.AssignRole(ctx, "ACME", bob, "ShareholdersAdministrator", "Registrar")
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	fresh, err := api.RevokeRole(ctx, "ACME", bob, "ShareholdersAdministrator")
	require.NoError(t, err)
	assert.Len(t, api.jobs, 1, "submitting sweeps expired jobs")

	require.ErrorIs(t, api.RunJob(ctx, stale), ErrUnknownJob)
	delegates, err := mem.GetAllDelegates(ctx, "ACME")
	require.NoError(t, err)
	assert.Len(t, delegates, 2, "an expired grant never reaches the ledger")

	clock = clock.Add(2 * time.Minute)
	require.ErrorIs(t, api.RunJob(ctx, fresh), ErrUnknownJob, "expiry applies without a sweep")
	assert.Empty(t, api.jobs)
}
