package repository

import (
	"context"

	"social-im/internal/pkg/db"
	"social-im/internal/social/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RelationshipGroupMemberRepository struct {
	db *db.DB
}

func NewRelationshipGroupMemberRepository(db *db.DB) *RelationshipGroupMemberRepository {
	return &RelationshipGroupMemberRepository{db}
}

// Insert surfaces duplicate-key errors unwrapped so the move path can decide
// whether a duplicate in the target group is fatal.
func (r *RelationshipGroupMemberRepository) Insert(ctx context.Context, tx *gorm.DB, member *model.RelationshipGroupMember) error {
	stmt := r.db.Session(ctx, tx).Create(member)
	if stmt.Error != nil {
		if db.IsDuplicateKeyError(stmt.Error) {
			return stmt.Error
		}
		return errors.Wrap(stmt.Error, "Insert")
	}
	return nil
}

// Upsert adds the member if absent. Returns true when a new row was created.
func (r *RelationshipGroupMemberRepository) Upsert(ctx context.Context, tx *gorm.DB, member *model.RelationshipGroupMember) (bool, error) {
	stmt := r.db.Session(ctx, tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "group_index"}, {Name: "related_user_id"}},
			DoNothing: true,
		}).
		Create(member)
	if stmt.Error != nil {
		return false, errors.Wrap(stmt.Error, "Upsert")
	}
	return stmt.RowsAffected > 0, nil
}

// InsertAllIgnoreDuplicates bulk-inserts members tolerating duplicate-key
// partial success, for idempotent group moves.
func (r *RelationshipGroupMemberRepository) InsertAllIgnoreDuplicates(ctx context.Context, members []*model.RelationshipGroupMember) error {
	if len(members) == 0 {
		return nil
	}
	stmt := r.db.Session(ctx, nil).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "group_index"}, {Name: "related_user_id"}},
			DoNothing: true,
		}).
		Create(members)
	return errors.Wrap(stmt.Error, "InsertAllIgnoreDuplicates")
}

func (r *RelationshipGroupMemberRepository) DeleteByID(ctx context.Context, tx *gorm.DB, ownerId int64, groupIndex int32, relatedUserId int64) (int64, error) {
	stmt := r.db.Session(ctx, tx).
		Where("owner_id = ? AND group_index = ? AND related_user_id = ?", ownerId, groupIndex, relatedUserId).
		Delete(&model.RelationshipGroupMember{})
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "DeleteByID")
	}
	return stmt.RowsAffected, nil
}

func (r *RelationshipGroupMemberRepository) DeleteByOwnerAndGroup(ctx context.Context, ownerId int64, groupIndex int32) (int64, error) {
	stmt := r.db.Session(ctx, nil).
		Where("owner_id = ? AND group_index = ?", ownerId, groupIndex).
		Delete(&model.RelationshipGroupMember{})
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "DeleteByOwnerAndGroup")
	}
	return stmt.RowsAffected, nil
}

// DeleteByOwnerAndRelatedUsers removes the related users from every group of
// the owner.
func (r *RelationshipGroupMemberRepository) DeleteByOwnerAndRelatedUsers(ctx context.Context, tx *gorm.DB, ownerId int64, relatedUserIds []int64) (int64, error) {
	stmt := r.db.Session(ctx, tx).
		Where("owner_id = ? AND related_user_id IN ?", ownerId, relatedUserIds).
		Delete(&model.RelationshipGroupMember{})
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "DeleteByOwnerAndRelatedUsers")
	}
	return stmt.RowsAffected, nil
}

func (r *RelationshipGroupMemberRepository) FindMembers(ctx context.Context, ownerId int64, groupIndex int32) ([]*model.RelationshipGroupMember, error) {
	members := make([]*model.RelationshipGroupMember, 0)
	err := r.db.Wrap(ctx, "GroupMemberFindMembers", func(tx *gorm.DB) *gorm.DB {
		return tx.Find(&members, "owner_id = ? AND group_index = ?", ownerId, groupIndex)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindMembers")
	}
	return members, nil
}

func (r *RelationshipGroupMemberRepository) FindGroupIndexes(ctx context.Context, ownerId, relatedUserId int64) ([]int32, error) {
	indexes := make([]int32, 0)
	err := r.db.Wrap(ctx, "GroupMemberFindGroupIndexes", func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&model.RelationshipGroupMember{}).
			Where("owner_id = ? AND related_user_id = ?", ownerId, relatedUserId).
			Pluck("group_index", &indexes)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindGroupIndexes")
	}
	return indexes, nil
}

func (r *RelationshipGroupMemberRepository) FindMemberIDs(ctx context.Context, ownerId int64, groupIndex int32) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.Wrap(ctx, "GroupMemberFindMemberIDs", func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&model.RelationshipGroupMember{}).
			Where("owner_id = ? AND group_index = ?", ownerId, groupIndex).
			Pluck("related_user_id", &ids)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindMemberIDs")
	}
	return ids, nil
}

func (r *RelationshipGroupMemberRepository) FindMemberIDsFiltered(
	ctx context.Context,
	ownerIds []int64,
	groupIndexes []int32,
	page, size int,
) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.Wrap(ctx, "GroupMemberFindMemberIDsFiltered", func(tx *gorm.DB) *gorm.DB {
		stmt := tx.Model(&model.RelationshipGroupMember{})
		if len(ownerIds) > 0 {
			stmt = stmt.Where("owner_id IN ?", ownerIds)
		}
		if len(groupIndexes) > 0 {
			stmt = stmt.Where("group_index IN ?", groupIndexes)
		}
		if size > 0 {
			stmt = stmt.Limit(size)
			if page > 0 {
				stmt = stmt.Offset(page * size)
			}
		}
		return stmt.Distinct().Pluck("related_user_id", &ids)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindMemberIDsFiltered")
	}
	return ids, nil
}

func (r *RelationshipGroupMemberRepository) CountMembers(ctx context.Context, ownerIds []int64, groupIndexes []int32) (int64, error) {
	var count int64
	err := r.db.Wrap(ctx, "GroupMemberCountMembers", func(tx *gorm.DB) *gorm.DB {
		stmt := tx.Model(&model.RelationshipGroupMember{})
		if len(ownerIds) > 0 {
			stmt = stmt.Where("owner_id IN ?", ownerIds)
		}
		if len(groupIndexes) > 0 {
			stmt = stmt.Where("group_index IN ?", groupIndexes)
		}
		return stmt.Count(&count)
	})
	if err != nil {
		return 0, errors.Wrap(err, "CountMembers")
	}
	return count, nil
}

// CountGroupsOfRelatedUsers counts the distinct groups the related users sit
// in across the owners.
func (r *RelationshipGroupMemberRepository) CountGroupsOfRelatedUsers(ctx context.Context, ownerIds, relatedUserIds []int64) (int64, error) {
	var count int64
	err := r.db.Wrap(ctx, "GroupMemberCountGroupsOfRelatedUsers", func(tx *gorm.DB) *gorm.DB {
		stmt := tx.Model(&model.RelationshipGroupMember{})
		if len(ownerIds) > 0 {
			stmt = stmt.Where("owner_id IN ?", ownerIds)
		}
		if len(relatedUserIds) > 0 {
			stmt = stmt.Where("related_user_id IN ?", relatedUserIds)
		}
		return stmt.Distinct("owner_id", "group_index").Count(&count)
	})
	if err != nil {
		return 0, errors.Wrap(err, "CountGroupsOfRelatedUsers")
	}
	return count, nil
}
