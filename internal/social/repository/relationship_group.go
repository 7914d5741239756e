package repository

import (
	"context"
	"time"

	"social-im/internal/pkg/db"
	"social-im/internal/social/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RelationshipGroupRepository struct {
	db *db.DB
}

func NewRelationshipGroupRepository(db *db.DB) *RelationshipGroupRepository {
	return &RelationshipGroupRepository{db}
}

// Insert surfaces duplicate-key errors unwrapped so callers can retry with a
// fresh random index.
func (r *RelationshipGroupRepository) Insert(ctx context.Context, tx *gorm.DB, group *model.RelationshipGroup) error {
	stmt := r.db.Session(ctx, tx).Create(group)
	if stmt.Error != nil {
		if db.IsDuplicateKeyError(stmt.Error) {
			return stmt.Error
		}
		return errors.Wrap(stmt.Error, "Insert")
	}
	return nil
}

// EnsureDefault creates the owner's default group if it does not exist yet.
// The default group is created lazily, the first time something needs it.
func (r *RelationshipGroupRepository) EnsureDefault(ctx context.Context, tx *gorm.DB, ownerId int64, now time.Time) error {
	stmt := r.db.Session(ctx, tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "group_index"}},
			DoNothing: true,
		}).
		Create(&model.RelationshipGroup{
			OwnerID:      ownerId,
			GroupIndex:   model.DefaultGroupIndex,
			Name:         model.DefaultGroupName,
			CreationDate: now,
		})
	return errors.Wrap(stmt.Error, "EnsureDefault")
}

func (r *RelationshipGroupRepository) FindByOwner(ctx context.Context, ownerId int64) ([]*model.RelationshipGroup, error) {
	groups := make([]*model.RelationshipGroup, 0)
	err := r.db.Wrap(ctx, "RelationshipGroupFindByOwner", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("group_index").Find(&groups, "owner_id = ?", ownerId)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindByOwner")
	}
	return groups, nil
}

func (r *RelationshipGroupRepository) FindOne(ctx context.Context, ownerId int64, groupIndex int32) (*model.RelationshipGroup, error) {
	var group model.RelationshipGroup
	err := r.db.Wrap(ctx, "RelationshipGroupFindOne", func(tx *gorm.DB) *gorm.DB {
		return tx.First(&group, "owner_id = ? AND group_index = ?", ownerId, groupIndex)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindOne")
	}
	return &group, nil
}

func (r *RelationshipGroupRepository) UpdateName(ctx context.Context, ownerId int64, groupIndex int32, name string) (int64, error) {
	stmt := r.db.Session(ctx, nil).Model(&model.RelationshipGroup{}).
		Where("owner_id = ? AND group_index = ?", ownerId, groupIndex).
		Update("name", name)
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "UpdateName")
	}
	return stmt.RowsAffected, nil
}

// UpdateGroups is the admin batch update of (name, creationDate) for a key set.
func (r *RelationshipGroupRepository) UpdateGroups(
	ctx context.Context,
	keys []model.RelationshipGroupKey,
	name *string,
	creationDate *time.Time,
) (int64, error) {
	set := make(map[string]any, 2)
	if name != nil {
		set["name"] = *name
	}
	if creationDate != nil {
		set["creation_date"] = *creationDate
	}
	if len(set) == 0 {
		return 0, nil
	}
	var total int64
	for _, key := range keys {
		stmt := r.db.Session(ctx, nil).Model(&model.RelationshipGroup{}).
			Where("owner_id = ? AND group_index = ?", key.OwnerID, key.GroupIndex).
			Updates(set)
		if stmt.Error != nil {
			return total, errors.Wrap(stmt.Error, "UpdateGroups")
		}
		total += stmt.RowsAffected
	}
	return total, nil
}

func (r *RelationshipGroupRepository) DeleteByID(ctx context.Context, tx *gorm.DB, ownerId int64, groupIndex int32) (int64, error) {
	stmt := r.db.Session(ctx, tx).
		Where("owner_id = ? AND group_index = ?", ownerId, groupIndex).
		Delete(&model.RelationshipGroup{})
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "DeleteByID")
	}
	return stmt.RowsAffected, nil
}

func (r *RelationshipGroupRepository) DeleteByOwners(ctx context.Context, tx *gorm.DB, ownerIds []int64) (int64, error) {
	stmt := r.db.Session(ctx, tx).
		Where("owner_id IN ?", ownerIds).
		Delete(&model.RelationshipGroup{})
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "DeleteByOwners")
	}
	return stmt.RowsAffected, nil
}

type RelationshipGroupFilter struct {
	OwnerIDs          []int64
	Indexes           []int32
	Names             []string
	CreationDateRange DateRange
}

func (f RelationshipGroupFilter) apply(stmt *gorm.DB) *gorm.DB {
	if len(f.OwnerIDs) > 0 {
		stmt = stmt.Where("owner_id IN ?", f.OwnerIDs)
	}
	if len(f.Indexes) > 0 {
		stmt = stmt.Where("group_index IN ?", f.Indexes)
	}
	if len(f.Names) > 0 {
		stmt = stmt.Where("name IN ?", f.Names)
	}
	return f.CreationDateRange.apply(stmt, "creation_date")
}

func (r *RelationshipGroupRepository) FindGroups(
	ctx context.Context,
	filter RelationshipGroupFilter,
	page, size int,
) ([]*model.RelationshipGroup, error) {
	groups := make([]*model.RelationshipGroup, 0)
	err := r.db.Wrap(ctx, "RelationshipGroupFindGroups", func(tx *gorm.DB) *gorm.DB {
		stmt := filter.apply(tx.Model(&model.RelationshipGroup{}))
		if size > 0 {
			stmt = stmt.Limit(size)
			if page > 0 {
				stmt = stmt.Offset(page * size)
			}
		}
		return stmt.Order("owner_id, group_index").Find(&groups)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindGroups")
	}
	return groups, nil
}

func (r *RelationshipGroupRepository) CountGroups(ctx context.Context, filter RelationshipGroupFilter) (int64, error) {
	var count int64
	err := r.db.Wrap(ctx, "RelationshipGroupCountGroups", func(tx *gorm.DB) *gorm.DB {
		return filter.apply(tx.Model(&model.RelationshipGroup{})).Count(&count)
	})
	if err != nil {
		return 0, errors.Wrap(err, "CountGroups")
	}
	return count, nil
}
