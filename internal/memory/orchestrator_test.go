package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/internal/crypto"
	"github.com/engramhq/engram/internal/index"
	"github.com/engramhq/engram/internal/store"
	"github.com/engramhq/engram/internal/synonyms"
)

func clockAt(ms int64) func() int64 {
	return func() int64 { return ms }
}

func newTestMemory(t *testing.T, now func() int64) *Memory {
	t.Helper()
	s := store.NewLocalStore(t.TempDir())
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	syn := synonyms.New()
	syn.AddGroup([]string{"flare xrp", "fxrp"})

	return New(Options{
		AgentID:  "test",
		Storage:  s,
		Synonyms: syn,
		Now:      now,
	})
}

// S1
func TestScenario_RememberAndRecallDarkMode(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	eps, err := m.Remember(ctx, "User prefers dark mode for the interface", RememberOptions{
		Type: "fact",
		Tags: []string{"preferences", "ui"},
	})
	require.NoError(t, err)
	require.Len(t, eps, 1)

	results, err := m.Recall(ctx, "dark mode preferences", RecallOptions{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Episode.Text, "dark mode")

	recent, err := m.GetRecent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

// S2
func TestScenario_TagsStatsPruneForget(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	s1, err := m.Remember(ctx, "User prefers dark mode for the interface", RememberOptions{Type: "fact", Tags: []string{"preferences", "ui"}})
	require.NoError(t, err)
	_, err = m.Remember(ctx, "Traded 100 FXRP at 2.5 USDT", RememberOptions{Type: "trade", Tags: []string{"fxrp", "trade"}})
	require.NoError(t, err)
	_, err = m.Remember(ctx, "Lesson: always check gas fees before bridging", RememberOptions{Type: "lesson", Tags: []string{"lesson", "bridge"}})
	require.NoError(t, err)

	byTag, err := m.FindByTag(ctx, "fxrp")
	require.NoError(t, err)
	assert.Len(t, byTag, 1)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.EpisodeCount)

	pruneResult, err := m.Prune(ctx, PruneOptions{Keep: 1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(pruneResult.Pruned), 1)

	// Forget episode 1; Prune may already have removed it, so the result
	// is not checked.
	deleted, err := m.Forget(ctx, s1[0].ID)
	require.NoError(t, err)
	_ = deleted

	recent, err := m.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(recent), 2)
}

// S3
func TestScenario_SynonymBridgeSurfacesFlareXRP(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	_, err := m.Remember(ctx, "Opened a new Flare XRP position worth 5000 tokens on Enosys", RememberOptions{Type: "fact"})
	require.NoError(t, err)

	results, err := m.Recall(ctx, "FXRP allocation", RecallOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Episode.Text, "Flare XRP")
}

// S4
func TestScenario_SupersessionChainOrdersOldestToNewest(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	v1, err := m.Remember(ctx, "Fact v1", RememberOptions{})
	require.NoError(t, err)
	v2, err := m.Remember(ctx, "Fact v2", RememberOptions{Supersedes: []string{v1[0].ID}})
	require.NoError(t, err)
	v3, err := m.Remember(ctx, "Fact v3", RememberOptions{Supersedes: []string{v2[0].ID}})
	require.NoError(t, err)

	chain, err := m.SupersessionChain(ctx, v1[0].ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, v1[0].ID, chain[0].ID)
	assert.Equal(t, v3[0].ID, chain[2].ID)
}

// Remember always mints a fresh random ID for the new episode, so the
// cycle guard in rememberLocked can never actually fire through the public
// API (a brand new ID cannot already appear in an existing chain). Exercise
// the same guard rememberLocked calls — index.WouldCreateCycle over the
// orchestrator's own storage — directly against a hand-built v1<-v2<-v3
// chain, confirming the integration used in rememberLocked rejects the
// backward edge v3 would need to also supersede v1 through.
func TestRemember_SupersedesCycleGuardDetectsExistingChain(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	v1, err := m.Remember(ctx, "Fact v1", RememberOptions{})
	require.NoError(t, err)
	v2, err := m.Remember(ctx, "Fact v2", RememberOptions{Supersedes: []string{v1[0].ID}})
	require.NoError(t, err)
	v3, err := m.Remember(ctx, "Fact v3", RememberOptions{Supersedes: []string{v2[0].ID}})
	require.NoError(t, err)

	// v1 is already v3's ancestor; having v1 also supersede v3 would close
	// the loop v1 -> v3 -> v2 -> v1.
	cyclic, err := index.WouldCreateCycle(ctx, v1[0].ID, v3[0].ID, m.storage)
	require.NoError(t, err)
	assert.True(t, cyclic)

	// Unrelated episodes never cycle.
	other, err := m.Remember(ctx, "unrelated fact", RememberOptions{})
	require.NoError(t, err)
	cyclic, err = index.WouldCreateCycle(ctx, other[0].ID, v3[0].ID, m.storage)
	require.NoError(t, err)
	assert.False(t, cyclic)
}

// S7
func TestScenario_EncryptionAtRestRoundTrips(t *testing.T) {
	ctx := context.Background()
	var key crypto.Key
	for i := range key {
		key[i] = byte(i + 1)
	}

	s := store.NewLocalStore(t.TempDir())
	require.NoError(t, s.Init(context.Background()))
	defer s.Close()

	m := New(Options{AgentID: "test", Storage: s, Key: &key, Now: clockAt(1000)})
	eps, err := m.Remember(ctx, "secret content", RememberOptions{Type: "lesson", Importance: 0.9, Tags: []string{"classified"}})
	require.NoError(t, err)
	require.Len(t, eps, 1)

	onDisk, err := s.GetEpisode(ctx, eps[0].ID)
	require.NoError(t, err)
	assert.True(t, onDisk.Encrypted)
	assert.True(t, onDisk.TagsEncrypted)
	assert.Equal(t, "lesson", onDisk.Type)
	assert.Equal(t, 0.9, onDisk.Importance)
	assert.NotContains(t, onDisk.Text, "secret content")

	// A fresh orchestrator over the same store and key recalls the plaintext.
	m2 := New(Options{AgentID: "test", Storage: s, Key: &key, Now: clockAt(2000)})
	results, err := m2.Recall(ctx, "secret content", RecallOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Episode.Text, "secret content")
}

func TestRecall_WithoutKey_OnEncryptedStore_ReturnsPolicyError(t *testing.T) {
	ctx := context.Background()
	var key crypto.Key
	for i := range key {
		key[i] = byte(i + 7)
	}

	s := store.NewLocalStore(t.TempDir())
	require.NoError(t, s.Init(context.Background()))
	defer s.Close()

	m := New(Options{AgentID: "test", Storage: s, Key: &key, Now: clockAt(1000)})
	_, err := m.Remember(ctx, "secret content", RememberOptions{})
	require.NoError(t, err)

	noKey := New(Options{AgentID: "test", Storage: s, Now: clockAt(2000)})
	_, err = noKey.Recall(ctx, "secret content", RecallOptions{})
	require.Error(t, err)
}

func TestRecall_UpdatesAccessStats(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	eps, err := m.Remember(ctx, "remember this fact about gas fees", RememberOptions{})
	require.NoError(t, err)

	results, err := m.Recall(ctx, "gas fees fact", RecallOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, results[0].Episode.AccessCount)
	assert.Equal(t, eps[0].CreatedAt, results[0].Episode.CreatedAt)
}

func TestIncrementalInit_MatchesFreshRebuild(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1 := store.NewLocalStore(dir)
	require.NoError(t, s1.Init(ctx))
	m1 := New(Options{AgentID: "test", Storage: s1, Now: clockAt(1000)})
	_, err := m1.Remember(ctx, "first episode about trading fxrp", RememberOptions{})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2 := store.NewLocalStore(dir)
	require.NoError(t, s2.Init(ctx))
	defer s2.Close()
	m2 := New(Options{AgentID: "test", Storage: s2, Now: clockAt(2000)})

	stats, err := m2.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EpisodeCount)

	results, err := m2.Recall(ctx, "trading fxrp", RecallOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}
