package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	content := `
server:
  addr: "0.0.0.0:8004"
  node_id: 3
social:
  friend_request:
    max_content_length: 200
    allow_recall_pending_friend_request_by_sender: true
    expire_after_seconds: 3600
  relationship:
    delete_relationship_when_removed_from_last_group: true
  auto_block:
    enabled: true
    block_trigger_times: 5
    block_levels:
      - block_duration_seconds: 60
        go_next_level_trigger_times: 3
      - block_duration_seconds: 300
        go_next_level_trigger_times: 3
`
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	cfg := ParseConfig(file)
	assert.Equal(t, "0.0.0.0:8004", cfg.Server.Addr)
	assert.Equal(t, int64(3), cfg.Server.NodeID)
	assert.Equal(t, 200, cfg.Social.FriendRequest.MaxContentLength)
	assert.True(t, cfg.Social.FriendRequest.AllowRecallPendingFriendRequestBySender)
	assert.Equal(t, 3600, cfg.Social.FriendRequest.ExpireAfterSeconds)
	assert.True(t, cfg.Social.Relationship.DeleteRelationshipWhenRemovedFromLastGroup)
	require.Len(t, cfg.Social.AutoBlock.BlockLevels, 2)
	assert.Equal(t, int64(300), cfg.Social.AutoBlock.BlockLevels[1].BlockDurationSeconds)
}

func TestStoreSnapshotSwap(t *testing.T) {
	store := NewStore(SocialConfig{
		FriendRequest: FriendRequestConfig{ExpireAfterSeconds: 100},
	})
	before := store.Load()
	assert.Equal(t, 100, before.FriendRequest.ExpireAfterSeconds)

	store.Replace(SocialConfig{
		FriendRequest: FriendRequestConfig{ExpireAfterSeconds: 200},
	})
	assert.Equal(t, 200, store.Load().FriendRequest.ExpireAfterSeconds)
	// the old snapshot is immutable, not updated in place
	assert.Equal(t, 100, before.FriendRequest.ExpireAfterSeconds)
}
