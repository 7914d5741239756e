package service

import (
	"context"
	"testing"

	"social-im/internal/common/errcode"
	"social-im/internal/social/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFriendTwoUsers(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	var requesterIndex, recipientIndex int32
	err := f.db.TransactionWithRetry(ctx, func(tx *gorm.DB) error {
		var err error
		requesterIndex, recipientIndex, err = f.relationships.FriendTwoUsers(ctx, 1, 2, tx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultGroupIndex, requesterIndex)
	assert.Equal(t, model.DefaultGroupIndex, recipientIndex)

	for _, pair := range [][2]int64{{1, 2}, {2, 1}} {
		relationship, err := f.relationshipRepo.FindOne(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, relationship.IsBlocked)

		_, err = f.groupRepo.FindOne(ctx, pair[0], model.DefaultGroupIndex)
		require.NoError(t, err)

		ids, err := f.memberRepo.FindMemberIDs(ctx, pair[0], model.DefaultGroupIndex)
		require.NoError(t, err)
		assert.Equal(t, []int64{pair[1]}, ids)
	}
}

func TestFriendTwoUsersIsIdempotent(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := f.db.TransactionWithRetry(ctx, func(tx *gorm.DB) error {
			_, _, err := f.relationships.FriendTwoUsers(ctx, 1, 2, tx)
			return err
		})
		require.NoError(t, err)
	}
	ids, err := f.memberRepo.FindMemberIDs(ctx, 1, model.DefaultGroupIndex)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
}

func TestFriendTwoUsersRejectsSelf(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())

	err := f.db.TransactionWithRetry(context.Background(), func(tx *gorm.DB) error {
		_, _, err := f.relationships.FriendTwoUsers(context.Background(), 1, 1, tx)
		return err
	})
	assert.ErrorIs(t, err, errcode.ErrIllegalArgument)
}

func TestBlockAndUnblock(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	blocked, err := f.relationships.IsBlocked(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, f.relationships.UpsertOneSidedRelationship(ctx, 1, 2, true))
	blocked, err = f.relationships.IsBlocked(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, blocked)

	// one-sided: 2 has not blocked 1
	blocked, err = f.relationships.IsBlocked(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, f.relationships.UpsertOneSidedRelationship(ctx, 1, 2, false))
	blocked, err = f.relationships.IsBlocked(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestDeleteOneSidedRelationship(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	require.NoError(t, f.relationships.UpsertOneSidedRelationship(ctx, 1, 2, false))
	_, err := f.groups.UpsertGroupMember(ctx, 1, 2, int32Ptr(model.DefaultGroupIndex), nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.relationships.DeleteOneSidedRelationship(ctx, 1, 2, nil))

	_, err = f.relationshipRepo.FindOne(ctx, 1, 2)
	assert.Error(t, err)
	indexes, err := f.memberRepo.FindGroupIndexes(ctx, 1, 2)
	require.NoError(t, err)
	assert.Empty(t, indexes)
}

func TestFindRelatedUserIDs(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	require.NoError(t, f.relationships.UpsertOneSidedRelationship(ctx, 1, 2, false))
	require.NoError(t, f.relationships.UpsertOneSidedRelationship(ctx, 1, 3, true))

	all, err := f.relationships.FindRelatedUserIDs(ctx, 1, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3}, all)

	blockedOnly := true
	blocked, err := f.relationships.FindRelatedUserIDs(ctx, 1, &blockedOnly)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, blocked)
}
