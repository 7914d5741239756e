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

// Version stream columns of the user_version table.
const (
	VersionSentRequests       = "sent_requests_date"
	VersionReceivedRequests   = "received_requests_date"
	VersionRelationshipGroups = "relationship_groups_date"
	VersionGroupMembers       = "group_members_date"
)

type VersionRepository struct {
	db *db.DB
}

func NewVersionRepository(db *db.DB) *VersionRepository {
	return &VersionRepository{db}
}

// Touch sets the stream column to now for the user, creating the row if
// missing. Concurrent writers race with last-writer-wins wall-clock
// semantics, which is all incremental sync needs.
func (v *VersionRepository) Touch(ctx context.Context, userId int64, column string, now time.Time) error {
	stmt := v.db.Session(ctx, nil).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&model.UserVersion{UserID: userId})
	if stmt.Error != nil {
		return errors.Wrap(stmt.Error, "Touch")
	}
	stmt = v.db.Session(ctx, nil).Model(&model.UserVersion{}).
		Where("user_id = ?", userId).
		Update(column, now)
	return errors.Wrap(stmt.Error, "Touch")
}

func (v *VersionRepository) TouchAll(ctx context.Context, userIds []int64, column string, now time.Time) error {
	for _, userId := range userIds {
		if err := v.Touch(ctx, userId, column, now); err != nil {
			return err
		}
	}
	return nil
}

func (v *VersionRepository) Find(ctx context.Context, userId int64) (*model.UserVersion, error) {
	var version model.UserVersion
	err := v.db.Wrap(ctx, "VersionFind", func(tx *gorm.DB) *gorm.DB {
		return tx.First(&version, "user_id = ?", userId)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Find")
	}
	return &version, nil
}
