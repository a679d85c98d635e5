package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContext_FormatsDateTypeTagsAndText(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1739016000000)) // 2025-02-08 12:00:00 UTC

	_, err := m.Remember(ctx, "User prefers dark mode for the interface", RememberOptions{
		Type: "fact",
		Tags: []string{"preferences", "ui"},
	})
	require.NoError(t, err)

	out, err := m.BuildContext(ctx, "dark mode preferences", 1000)
	require.NoError(t, err)

	assert.Contains(t, out, "[2025-02-08]")
	assert.Contains(t, out, "(fact)")
	assert.Contains(t, out, "preferences")
	assert.Contains(t, out, "User prefers dark mode")
	assert.True(t, strings.HasSuffix(out, "\n\n"))
}

func TestBuildContext_StopsAtTokenBudget(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	for i := 0; i < 5; i++ {
		_, err := m.Remember(ctx, "shared keyword content repeated across many episodes for budget testing", RememberOptions{})
		require.NoError(t, err)
	}

	small, err := m.BuildContext(ctx, "shared keyword content", 12)
	require.NoError(t, err)
	large, err := m.BuildContext(ctx, "shared keyword content", 10000)
	require.NoError(t, err)

	assert.NotEmpty(t, small)
	assert.Greater(t, len(large), len(small))
}

func TestInjectContext_RendersBothSections(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	_, err := m.Remember(ctx, "relevant fact about gas fees on the bridge", RememberOptions{})
	require.NoError(t, err)
	_, err = m.Remember(ctx, "unrelated note about something else entirely", RememberOptions{})
	require.NoError(t, err)

	out, err := m.InjectContext(ctx, "gas fees bridge", InjectOptions{})
	require.NoError(t, err)

	assert.Contains(t, out, "## Relevant Memories")
	assert.Contains(t, out, "gas fees")
	assert.Contains(t, out, "## Recent Context")
	assert.Contains(t, out, "unrelated note")
}

func TestInjectContext_ExcludeTags_DropsEpisodes(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	_, err := m.Remember(ctx, "secret operational detail", RememberOptions{Tags: []string{"internal"}})
	require.NoError(t, err)
	_, err = m.Remember(ctx, "public operational detail", RememberOptions{Tags: []string{"public"}})
	require.NoError(t, err)

	out, err := m.InjectContext(ctx, "operational detail", InjectOptions{ExcludeTags: []string{"internal"}})
	require.NoError(t, err)

	assert.NotContains(t, out, "secret operational detail")
	assert.Contains(t, out, "public operational detail")
}

func TestInjectContext_PriorityTags_BoostRanking(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	_, err := m.Remember(ctx, "plain fact about fxrp trading", RememberOptions{Tags: []string{"plain"}})
	require.NoError(t, err)
	_, err = m.Remember(ctx, "boosted fact about fxrp trading", RememberOptions{Tags: []string{"critical"}})
	require.NoError(t, err)

	out, err := m.InjectContext(ctx, "fxrp trading", InjectOptions{PriorityTags: []string{"critical"}})
	require.NoError(t, err)

	boostedAt := strings.Index(out, "boosted fact")
	plainAt := strings.Index(out, "plain fact")
	require.GreaterOrEqual(t, boostedAt, 0)
	require.GreaterOrEqual(t, plainAt, 0)
	assert.Less(t, boostedAt, plainAt)
}

func TestInjectContext_TruncatesLongEpisodeText(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	long := "searchable marker text " + strings.Repeat("filler words to pad the episode body well past the cap ", 20)
	_, err := m.Remember(ctx, long, RememberOptions{})
	require.NoError(t, err)

	out, err := m.InjectContext(ctx, "searchable marker text", InjectOptions{})
	require.NoError(t, err)

	assert.Contains(t, out, "searchable marker text")
	assert.NotContains(t, out, long)
}

func TestPostCompactionContext_OrdersByTypePriority(t *testing.T) {
	ctx := context.Background()
	clock := int64(1000)
	m := newTestMemory(t, func() int64 { return clock })

	_, err := m.Remember(ctx, "a conversation fragment from earlier", RememberOptions{Type: "conversation"})
	require.NoError(t, err)
	clock += 1000
	_, err = m.Remember(ctx, "a plain fact recorded mid-session", RememberOptions{Type: "fact"})
	require.NoError(t, err)
	clock += 1000
	_, err = m.Remember(ctx, "a checkpoint written before compaction", RememberOptions{Type: "checkpoint"})
	require.NoError(t, err)

	out, err := m.PostCompactionContext(ctx, CompactionContextOptions{})
	require.NoError(t, err)

	checkpointAt := strings.Index(out, "a checkpoint")
	factAt := strings.Index(out, "a plain fact")
	conversationAt := strings.Index(out, "a conversation")
	require.GreaterOrEqual(t, checkpointAt, 0)
	require.GreaterOrEqual(t, factAt, 0)
	require.GreaterOrEqual(t, conversationAt, 0)
	assert.Less(t, checkpointAt, factAt)
	assert.Less(t, factAt, conversationAt)
}

func TestPostCompactionContext_ExcludesEpisodesOutsideWindow(t *testing.T) {
	ctx := context.Background()
	clock := int64(1000)
	m := newTestMemory(t, func() int64 { return clock })

	_, err := m.Remember(ctx, "stale episode from two days ago", RememberOptions{Type: "event"})
	require.NoError(t, err)

	clock += 48 * 3600 * 1000
	_, err = m.Remember(ctx, "fresh episode from just now", RememberOptions{Type: "event"})
	require.NoError(t, err)

	out, err := m.PostCompactionContext(ctx, CompactionContextOptions{HoursBack: 24})
	require.NoError(t, err)

	assert.Contains(t, out, "fresh episode")
	assert.NotContains(t, out, "stale episode")
}

func TestPostCompactionContext_RespectsCharBudget(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t, clockAt(1000))

	for i := 0; i < 10; i++ {
		_, err := m.Remember(ctx, "an episode body long enough to consume a chunk of any small character budget", RememberOptions{})
		require.NoError(t, err)
	}

	out, err := m.PostCompactionContext(ctx, CompactionContextOptions{MaxChars: 200})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 200)
	assert.NotEmpty(t, out)
}
