package repository

import (
	"context"

	"social-im/internal/pkg/db"
	"social-im/internal/social/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RelationshipRepository struct {
	db *db.DB
}

func NewRelationshipRepository(db *db.DB) *RelationshipRepository {
	return &RelationshipRepository{db}
}

// UpsertOneSided writes the owner's side of a relationship, overwriting the
// block flag and establishment date if the row already exists.
func (r *RelationshipRepository) UpsertOneSided(ctx context.Context, tx *gorm.DB, relationship *model.Relationship) error {
	stmt := r.db.Session(ctx, tx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "related_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_blocked", "establishment_date"}),
		}).
		Create(relationship)
	return errors.Wrap(stmt.Error, "UpsertOneSided")
}

func (r *RelationshipRepository) FindOne(ctx context.Context, ownerId, relatedUserId int64) (*model.Relationship, error) {
	var relationship model.Relationship
	err := r.db.Wrap(ctx, "RelationshipFindOne", func(tx *gorm.DB) *gorm.DB {
		return tx.First(&relationship, "owner_id = ? AND related_user_id = ?", ownerId, relatedUserId)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindOne")
	}
	return &relationship, nil
}

// IsBlocked reports whether ownerId has blocked relatedUserId.
func (r *RelationshipRepository) IsBlocked(ctx context.Context, ownerId, relatedUserId int64) (bool, error) {
	var count int64
	err := r.db.Wrap(ctx, "RelationshipIsBlocked", func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&model.Relationship{}).
			Where("owner_id = ? AND related_user_id = ? AND is_blocked = ?", ownerId, relatedUserId, true).
			Count(&count)
	})
	if err != nil {
		return false, errors.Wrap(err, "IsBlocked")
	}
	return count > 0, nil
}

func (r *RelationshipRepository) DeleteOneSided(ctx context.Context, tx *gorm.DB, ownerId, relatedUserId int64) (int64, error) {
	stmt := r.db.Session(ctx, tx).
		Where("owner_id = ? AND related_user_id = ?", ownerId, relatedUserId).
		Delete(&model.Relationship{})
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "DeleteOneSided")
	}
	return stmt.RowsAffected, nil
}

func (r *RelationshipRepository) FindRelatedUserIDs(ctx context.Context, ownerId int64, blocked *bool) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.Wrap(ctx, "RelationshipFindRelatedUserIDs", func(tx *gorm.DB) *gorm.DB {
		stmt := tx.Model(&model.Relationship{}).Where("owner_id = ?", ownerId)
		if blocked != nil {
			stmt = stmt.Where("is_blocked = ?", *blocked)
		}
		return stmt.Pluck("related_user_id", &ids)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindRelatedUserIDs")
	}
	return ids, nil
}
