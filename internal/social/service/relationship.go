package service

import (
	"context"
	"time"

	"social-im/internal/common/errcode"
	"social-im/internal/pkg/db"
	"social-im/internal/social/model"
	"social-im/internal/social/repository"

	"gorm.io/gorm"
)

// RelationshipService owns the one-sided relationship rows and the mutation
// that turns an accepted friend request into a confirmed friendship.
type RelationshipService struct {
	db            *db.DB
	relationships *repository.RelationshipRepository
	groups        *repository.RelationshipGroupRepository
	members       *repository.RelationshipGroupMemberRepository
	versions      *VersionService
}

func NewRelationshipService(
	database *db.DB,
	relationships *repository.RelationshipRepository,
	groups *repository.RelationshipGroupRepository,
	members *repository.RelationshipGroupMemberRepository,
	versions *VersionService,
) *RelationshipService {
	return &RelationshipService{
		db:            database,
		relationships: relationships,
		groups:        groups,
		members:       members,
		versions:      versions,
	}
}

// IsBlocked reports whether ownerId has blocked relatedUserId.
func (s *RelationshipService) IsBlocked(ctx context.Context, ownerId, relatedUserId int64) (bool, error) {
	return s.relationships.IsBlocked(ctx, ownerId, relatedUserId)
}

// FriendTwoUsers establishes the two mirrored relationship rows and puts each
// user into the other's default group, all on the caller's transaction handle.
// It returns the group index that received the relationship on each side:
// first the requester's, then the recipient's. Version bumps are the caller's
// concern since they must happen after the transaction commits.
func (s *RelationshipService) FriendTwoUsers(ctx context.Context, requesterId, recipientId int64, tx *gorm.DB) (int32, int32, error) {
	if requesterId == recipientId {
		return 0, 0, errcode.ErrIllegalArgument.WithDetail("a user cannot friend themselves")
	}
	now := time.Now()
	pairs := [2]struct{ owner, related int64 }{
		{requesterId, recipientId},
		{recipientId, requesterId},
	}
	for _, p := range pairs {
		err := s.relationships.UpsertOneSided(ctx, tx, &model.Relationship{
			OwnerID:           p.owner,
			RelatedUserID:     p.related,
			IsBlocked:         false,
			EstablishmentDate: now,
		})
		if err != nil {
			return 0, 0, err
		}
		if err = s.groups.EnsureDefault(ctx, tx, p.owner, now); err != nil {
			return 0, 0, err
		}
		_, err = s.members.Upsert(ctx, tx, &model.RelationshipGroupMember{
			OwnerID:       p.owner,
			GroupIndex:    model.DefaultGroupIndex,
			RelatedUserID: p.related,
			JoinDate:      now,
		})
		if err != nil {
			return 0, 0, err
		}
	}
	return model.DefaultGroupIndex, model.DefaultGroupIndex, nil
}

// UpsertOneSidedRelationship writes the owner's view of the related user.
// Blocking and unblocking go through here: the row is kept either way and
// only the block flag flips.
func (s *RelationshipService) UpsertOneSidedRelationship(ctx context.Context, ownerId, relatedUserId int64, isBlocked bool) error {
	if ownerId == relatedUserId {
		return errcode.ErrIllegalArgument.WithDetail("a user cannot relate to themselves")
	}
	return s.relationships.UpsertOneSided(ctx, nil, &model.Relationship{
		OwnerID:           ownerId,
		RelatedUserID:     relatedUserId,
		IsBlocked:         isBlocked,
		EstablishmentDate: time.Now(),
	})
}

// DeleteOneSidedRelationship removes the owner's side of the relationship and
// the related user's memberships in all of the owner's groups. When no
// transaction is threaded through, the two deletes run in their own one.
func (s *RelationshipService) DeleteOneSidedRelationship(ctx context.Context, ownerId, relatedUserId int64, tx *gorm.DB) error {
	run := func(tx *gorm.DB) error {
		if _, err := s.relationships.DeleteOneSided(ctx, tx, ownerId, relatedUserId); err != nil {
			return err
		}
		_, err := s.members.DeleteByOwnerAndRelatedUsers(ctx, tx, ownerId, []int64{relatedUserId})
		return err
	}
	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = s.db.TransactionWithRetry(ctx, run)
	}
	if err != nil {
		return err
	}
	s.versions.BumpGroupMembers(ctx, ownerId)
	return nil
}

func (s *RelationshipService) FindRelatedUserIDs(ctx context.Context, ownerId int64, blocked *bool) ([]int64, error) {
	return s.relationships.FindRelatedUserIDs(ctx, ownerId, blocked)
}
