package service

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"social-im/internal/common/errcode"
	"social-im/internal/pkg/db"
	"social-im/internal/social/config"
	"social-im/internal/social/model"
	"social-im/internal/social/repository"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const createGroupMaxAttempts = 10

// RelationshipGroupService owns the named buckets a user partitions their
// relationships into, and the memberships inside them.
//
// It depends on RelationshipService lazily through a provider: the two
// services reference each other (accepting a request creates group members;
// removing a member from their last group may delete the relationship), so
// the instance is resolved on first use instead of at construction.
type RelationshipGroupService struct {
	db            *db.DB
	groups        *repository.RelationshipGroupRepository
	members       *repository.RelationshipGroupMemberRepository
	versions      *VersionService
	cfg           *config.Store
	relationships func() *RelationshipService
}

func NewRelationshipGroupService(
	database *db.DB,
	groups *repository.RelationshipGroupRepository,
	members *repository.RelationshipGroupMemberRepository,
	versions *VersionService,
	cfg *config.Store,
	relationships func() *RelationshipService,
) *RelationshipGroupService {
	return &RelationshipGroupService{
		db:            database,
		groups:        groups,
		members:       members,
		versions:      versions,
		cfg:           cfg,
		relationships: relationships,
	}
}

// CreateGroup creates a group for the owner. When groupIndex is nil a random
// positive index is generated and the insert is retried on duplicate key —
// but only when no transaction is threaded through, because a transaction
// cannot be resumed after a constraint violation. With a transaction the
// first duplicate is fatal.
func (s *RelationshipGroupService) CreateGroup(
	ctx context.Context,
	ownerId int64,
	groupIndex *int32,
	name string,
	creationDate *time.Time,
	tx *gorm.DB,
) (*model.RelationshipGroup, error) {
	now := time.Now()
	if creationDate == nil {
		creationDate = &now
	}
	group := &model.RelationshipGroup{
		OwnerID:      ownerId,
		Name:         name,
		CreationDate: *creationDate,
	}
	if groupIndex != nil {
		group.GroupIndex = *groupIndex
		if err := s.groups.Insert(ctx, tx, group); err != nil {
			if db.IsDuplicateKeyError(err) {
				return nil, errcode.ErrIllegalArgument.WithDetail("group %d already exists", *groupIndex)
			}
			return nil, err
		}
	} else if tx != nil {
		group.GroupIndex = randomGroupIndex()
		if err := s.groups.Insert(ctx, tx, group); err != nil {
			return nil, err
		}
	} else {
		var err error
		for attempt := 0; attempt < createGroupMaxAttempts; attempt++ {
			group.GroupIndex = randomGroupIndex()
			err = s.groups.Insert(ctx, nil, group)
			if err == nil || !db.IsDuplicateKeyError(err) {
				break
			}
		}
		if err != nil {
			return nil, err
		}
	}
	s.versions.BumpRelationshipGroups(ctx, ownerId)
	return group, nil
}

func randomGroupIndex() int32 {
	for {
		if index := rand.Int31(); index != model.DefaultGroupIndex {
			return index
		}
	}
}

// UpsertGroupMember dispatches on which of newIndex and deleteIndex are
// present. The returned index is the group that ended up holding the related
// user, or nil when nothing changed.
func (s *RelationshipGroupService) UpsertGroupMember(
	ctx context.Context,
	ownerId, relatedUserId int64,
	newIndex, deleteIndex *int32,
	tx *gorm.DB,
) (*int32, error) {
	switch {
	case newIndex != nil && deleteIndex == nil:
		inserted, err := s.addGroupMember(ctx, ownerId, relatedUserId, *newIndex, tx)
		if err != nil {
			return nil, err
		}
		if !inserted {
			return nil, nil
		}
		s.versions.BumpGroupMembers(ctx, ownerId)
		return newIndex, nil
	case newIndex != nil && *deleteIndex == *newIndex:
		return nil, nil
	case newIndex != nil:
		// an explicit move: the related user already sitting in the target
		// group surfaces as a duplicate-key failure
		if err := s.MoveRelatedUserToNewGroup(ctx, ownerId, relatedUserId, *deleteIndex, *newIndex, false, tx); err != nil {
			return nil, err
		}
		return newIndex, nil
	case deleteIndex == nil:
		return nil, nil
	case *deleteIndex == model.DefaultGroupIndex:
		return nil, nil
	default:
		return s.removeFromGroup(ctx, ownerId, relatedUserId, *deleteIndex, tx)
	}
}

func (s *RelationshipGroupService) addGroupMember(ctx context.Context, ownerId, relatedUserId int64, groupIndex int32, tx *gorm.DB) (bool, error) {
	now := time.Now()
	if groupIndex == model.DefaultGroupIndex {
		if err := s.groups.EnsureDefault(ctx, tx, ownerId, now); err != nil {
			return false, err
		}
	}
	return s.members.Upsert(ctx, tx, &model.RelationshipGroupMember{
		OwnerID:       ownerId,
		GroupIndex:    groupIndex,
		RelatedUserID: relatedUserId,
		JoinDate:      now,
	})
}

// removeFromGroup is the "delete only" arm of UpsertGroupMember. Normally the
// related user is moved back to the default group; when the configured policy
// says so and this was their last group, the one-sided relationship itself is
// deleted instead.
func (s *RelationshipGroupService) removeFromGroup(ctx context.Context, ownerId, relatedUserId int64, deleteIndex int32, tx *gorm.DB) (*int32, error) {
	if s.cfg.Load().Relationship.DeleteRelationshipWhenRemovedFromLastGroup {
		indexes, err := s.members.FindGroupIndexes(ctx, ownerId, relatedUserId)
		if err != nil {
			return nil, err
		}
		if len(indexes) == 1 && indexes[0] == deleteIndex {
			if err = s.relationships().DeleteOneSidedRelationship(ctx, ownerId, relatedUserId, tx); err != nil {
				return nil, err
			}
			return nil, nil
		}
	}
	if err := s.MoveRelatedUserToNewGroup(ctx, ownerId, relatedUserId, deleteIndex, model.DefaultGroupIndex, true, tx); err != nil {
		return nil, err
	}
	defaultIndex := model.DefaultGroupIndex
	return &defaultIndex, nil
}

// MoveRelatedUserToNewGroup moves the related user between two of the owner's
// groups. The insert runs before the delete so a concurrent reader never
// observes the member as absent from every group; with suppressDuplicate the
// insert tolerates the member already sitting in the target group, which
// makes the move idempotent.
func (s *RelationshipGroupService) MoveRelatedUserToNewGroup(
	ctx context.Context,
	ownerId, relatedUserId int64,
	fromIndex, toIndex int32,
	suppressDuplicate bool,
	tx *gorm.DB,
) error {
	if fromIndex == toIndex {
		return nil
	}
	now := time.Now()
	if toIndex == model.DefaultGroupIndex {
		if err := s.groups.EnsureDefault(ctx, tx, ownerId, now); err != nil {
			return err
		}
	}
	member := &model.RelationshipGroupMember{
		OwnerID:       ownerId,
		GroupIndex:    toIndex,
		RelatedUserID: relatedUserId,
		JoinDate:      now,
	}
	if suppressDuplicate {
		if _, err := s.members.Upsert(ctx, tx, member); err != nil {
			return err
		}
	} else if err := s.members.Insert(ctx, tx, member); err != nil {
		if db.IsDuplicateKeyError(err) {
			return errcode.ErrIllegalArgument.WithDetail("user %d is already in group %d", relatedUserId, toIndex)
		}
		return err
	}
	if _, err := s.members.DeleteByID(ctx, tx, ownerId, fromIndex, relatedUserId); err != nil {
		return err
	}
	s.versions.BumpGroupMembers(ctx, ownerId)
	return nil
}

// DeleteGroupAndMoveMembers deletes the group after moving its members into
// another one. Deliberately not transactional: each step is idempotent, so a
// crash midway is recovered by rerunning the operation.
func (s *RelationshipGroupService) DeleteGroupAndMoveMembers(ctx context.Context, ownerId int64, deleteIndex, newIndex int32) error {
	if deleteIndex == model.DefaultGroupIndex {
		return errcode.ErrIllegalArgument.WithDetail("the default group cannot be deleted")
	}
	if deleteIndex == newIndex {
		return nil
	}
	members, err := s.members.FindMembers(ctx, ownerId, deleteIndex)
	if err != nil {
		return err
	}
	now := time.Now()
	if newIndex == model.DefaultGroupIndex {
		if err = s.groups.EnsureDefault(ctx, nil, ownerId, now); err != nil {
			return err
		}
	}
	moved := make([]*model.RelationshipGroupMember, 0, len(members))
	for _, member := range members {
		moved = append(moved, &model.RelationshipGroupMember{
			OwnerID:       member.OwnerID,
			GroupIndex:    newIndex,
			RelatedUserID: member.RelatedUserID,
			JoinDate:      now,
		})
	}
	if err = s.members.InsertAllIgnoreDuplicates(ctx, moved); err != nil {
		return err
	}
	if _, err = s.members.DeleteByOwnerAndGroup(ctx, ownerId, deleteIndex); err != nil {
		return err
	}
	if _, err = s.groups.DeleteByID(ctx, nil, ownerId, deleteIndex); err != nil {
		return err
	}
	s.versions.BumpRelationshipGroups(ctx, ownerId)
	s.versions.BumpGroupMembers(ctx, ownerId)
	return nil
}

// DeleteRelatedUsersFromAllGroups removes each (owner, relatedUser) pair from
// every group of the owner. The work is dispatched on the shape of the key
// set: one key or one owner turns into a single delete, many owners fan out
// in parallel. The fan-out only happens without a transaction because a
// transaction handle must not be shared across goroutines.
func (s *RelationshipGroupService) DeleteRelatedUsersFromAllGroups(ctx context.Context, keys []model.RelationshipKey, tx *gorm.DB) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	byOwner := make(map[int64][]int64)
	for _, key := range keys {
		byOwner[key.OwnerID] = append(byOwner[key.OwnerID], key.RelatedUserID)
	}
	owners := make([]int64, 0, len(byOwner))
	for ownerId := range byOwner {
		owners = append(owners, ownerId)
	}
	var deleted int64
	if len(byOwner) == 1 || tx != nil {
		for ownerId, relatedUserIds := range byOwner {
			count, err := s.members.DeleteByOwnerAndRelatedUsers(ctx, tx, ownerId, relatedUserIds)
			if err != nil {
				return deleted, err
			}
			deleted += count
		}
	} else {
		var total atomic.Int64
		group, groupCtx := errgroup.WithContext(ctx)
		for ownerId, relatedUserIds := range byOwner {
			ownerId, relatedUserIds := ownerId, relatedUserIds
			group.Go(func() error {
				count, err := s.members.DeleteByOwnerAndRelatedUsers(groupCtx, nil, ownerId, relatedUserIds)
				if err != nil {
					return err
				}
				total.Add(count)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return total.Load(), err
		}
		deleted = total.Load()
	}
	s.versions.BumpGroupMembers(ctx, owners...)
	return deleted, nil
}

// UpdateGroupName renames a group the owner holds.
func (s *RelationshipGroupService) UpdateGroupName(ctx context.Context, ownerId int64, groupIndex int32, name string) error {
	rows, err := s.groups.UpdateName(ctx, ownerId, groupIndex, name)
	if err != nil {
		return err
	}
	if rows > 0 {
		s.versions.BumpRelationshipGroups(ctx, ownerId)
	}
	return nil
}

// UpdateGroups is the admin batch update of name and creation date.
func (s *RelationshipGroupService) UpdateGroups(ctx context.Context, keys []model.RelationshipGroupKey, name *string, creationDate *time.Time) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	rows, err := s.groups.UpdateGroups(ctx, keys, name, creationDate)
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		owners := make(map[int64]struct{}, len(keys))
		ownerIds := make([]int64, 0, len(keys))
		for _, key := range keys {
			if _, ok := owners[key.OwnerID]; !ok {
				owners[key.OwnerID] = struct{}{}
				ownerIds = append(ownerIds, key.OwnerID)
			}
		}
		s.versions.BumpRelationshipGroups(ctx, ownerIds...)
	}
	return rows, nil
}

// QueryGroupsWithVersion returns the owner's groups for incremental sync.
func (s *RelationshipGroupService) QueryGroupsWithVersion(ctx context.Context, ownerId int64, lastUpdated *time.Time) ([]*model.RelationshipGroup, *time.Time, error) {
	version, err := s.versions.QueryRelationshipGroupsVersion(ctx, ownerId)
	if err != nil {
		return nil, nil, err
	}
	if IsUpToDate(lastUpdated, version) {
		return nil, nil, errcode.ErrAlreadyUpToDate
	}
	groups, err := s.groups.FindByOwner(ctx, ownerId)
	if err != nil {
		return nil, nil, err
	}
	if len(groups) == 0 {
		return nil, nil, errcode.ErrNoContent
	}
	return groups, version, nil
}

// QueryGroupMemberIDsWithVersion returns the ids of the related users in one
// group for incremental sync.
func (s *RelationshipGroupService) QueryGroupMemberIDsWithVersion(ctx context.Context, ownerId int64, groupIndex int32, lastUpdated *time.Time) ([]int64, *time.Time, error) {
	version, err := s.versions.QueryGroupMembersVersion(ctx, ownerId)
	if err != nil {
		return nil, nil, err
	}
	if IsUpToDate(lastUpdated, version) {
		return nil, nil, errcode.ErrAlreadyUpToDate
	}
	ids, err := s.members.FindMemberIDs(ctx, ownerId, groupIndex)
	if err != nil {
		return nil, nil, err
	}
	if len(ids) == 0 {
		return nil, nil, errcode.ErrNoContent
	}
	return ids, version, nil
}

func (s *RelationshipGroupService) FindGroups(ctx context.Context, filter repository.RelationshipGroupFilter, page, size int) ([]*model.RelationshipGroup, error) {
	return s.groups.FindGroups(ctx, filter, page, size)
}

func (s *RelationshipGroupService) CountGroups(ctx context.Context, filter repository.RelationshipGroupFilter) (int64, error) {
	return s.groups.CountGroups(ctx, filter)
}

func (s *RelationshipGroupService) FindMemberIDs(ctx context.Context, ownerIds []int64, groupIndexes []int32, page, size int) ([]int64, error) {
	return s.members.FindMemberIDsFiltered(ctx, ownerIds, groupIndexes, page, size)
}

func (s *RelationshipGroupService) CountMembers(ctx context.Context, ownerIds []int64, groupIndexes []int32) (int64, error) {
	return s.members.CountMembers(ctx, ownerIds, groupIndexes)
}
