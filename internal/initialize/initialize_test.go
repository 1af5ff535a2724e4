package initialize

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfork/forksync/internal/config"
	"github.com/openfork/forksync/internal/hosting"
	"github.com/openfork/forksync/internal/manifest"
)

// mockInvitations simulates the bot account's invitation inbox.
type mockInvitations struct {
	pending  []int64
	accepted []int64
}

func (m *mockInvitations) ListInvitations(context.Context) ([]int64, error) {
	return m.pending, nil
}

func (m *mockInvitations) AcceptInvitation(_ context.Context, id int64) error {
	m.accepted = append(m.accepted, id)
	m.pending = nil
	return nil
}

func newTestInitializer(host *hosting.Mock, inv hosting.Invitations) *Initializer {
	cfg := config.Default()
	cfg.InvitationTimeout = 2 * time.Second
	return New(cfg, host, inv, zerolog.Nop())
}

func TestRunNormalizesMetadata(t *testing.T) {
	host := hosting.NewMock()
	host.Manifest = &manifest.Manifest{Version: "1.0.0", Platform: "demo"}
	host.Collabs = []string{"forksync-bot"}

	result, err := newTestInitializer(host, &mockInvitations{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "integration-demo", result.Name)
	assert.False(t, result.Invited)

	require.Len(t, host.Edits, 1)
	edit := host.Edits[0]
	assert.Equal(t, "integration-demo", edit.Name)
	assert.Equal(t, "https://github.com/author/integration-demo", edit.Homepage)
	assert.False(t, edit.HasIssues)
	assert.False(t, edit.AllowSquashMerge)
	assert.True(t, host.Watched)

	// Bot already a collaborator: no invitation sent.
	assert.Empty(t, host.Invited)
}

func TestRunInvitesBot(t *testing.T) {
	host := hosting.NewMock()
	host.Manifest = &manifest.Manifest{Version: "1.0.0", Platform: "demo"}
	inv := &mockInvitations{pending: []int64{42}}

	result, err := newTestInitializer(host, inv).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Invited)
	assert.Equal(t, "push", host.Invited["forksync-bot"])
	assert.Equal(t, []int64{42}, inv.accepted)
}

func TestRunInvitationTimeout(t *testing.T) {
	host := hosting.NewMock()
	host.Manifest = &manifest.Manifest{Version: "1.0.0", Platform: "demo"}

	init := newTestInitializer(host, &mockInvitations{})
	init.cfg.InvitationTimeout = 10 * time.Millisecond

	_, err := init.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "no invitation received")
}

func TestPurgeRemovesUpstreamArtifacts(t *testing.T) {
	host := hosting.NewMock()
	host.CreatedReleases = []*hosting.Release{
		{ID: 1, TagName: "0.9.0"},
		{ID: 2, TagName: "1.0.0"},
	}
	host.ForkBranches = []string{"master", "develop", "feature/login"}
	host.ForkTags = []string{"0.9.0", "1.0.0"}

	err := newTestInitializer(host, &mockInvitations{}).Purge(context.Background())
	require.NoError(t, err)

	assert.Empty(t, host.CreatedReleases)
	assert.Equal(t, []string{
		"heads/develop",
		"heads/feature/login",
		"tags/0.9.0",
		"tags/1.0.0",
	}, host.DeletedRefs)
}

func TestPurgeKeepsDefaultBranch(t *testing.T) {
	host := hosting.NewMock()
	host.ForkBranches = []string{"master"}

	err := newTestInitializer(host, &mockInvitations{}).Purge(context.Background())
	require.NoError(t, err)

	assert.Empty(t, host.DeletedRefs)
}

func TestPurgeFailsOnRefDeletion(t *testing.T) {
	host := hosting.NewMock()
	host.ForkBranches = []string{"develop"}
	host.DeleteRefErr = assert.AnError

	err := newTestInitializer(host, &mockInvitations{}).Purge(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to delete branch develop")
}

func TestRunFailsOnNonFork(t *testing.T) {
	host := hosting.NewMock()
	host.ForkRepo.Parent = nil

	_, err := newTestInitializer(host, &mockInvitations{}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "not a fork")
}
