package repository

import (
	"context"
	"time"

	"social-im/internal/pkg/db"
	"social-im/internal/social/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type FriendRequestRepository struct {
	db *db.DB
}

func NewFriendRequestRepository(db *db.DB) *FriendRequestRepository {
	return &FriendRequestRepository{db}
}

// DateRange is a half-open filter bound; nil ends are unbounded.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) apply(stmt *gorm.DB, column string) *gorm.DB {
	if r.Start != nil {
		stmt = stmt.Where(column+" >= ?", *r.Start)
	}
	if r.End != nil {
		stmt = stmt.Where(column+" < ?", *r.End)
	}
	return stmt
}

type FriendRequestFilter struct {
	IDs               []int64
	RequesterIDs      []int64
	RecipientIDs      []int64
	Statuses          []model.RequestStatus
	CreationDateRange DateRange
	ResponseDateRange DateRange
}

func (f FriendRequestFilter) apply(stmt *gorm.DB) *gorm.DB {
	if len(f.IDs) > 0 {
		stmt = stmt.Where("id IN ?", f.IDs)
	}
	if len(f.RequesterIDs) > 0 {
		stmt = stmt.Where("requester_id IN ?", f.RequesterIDs)
	}
	if len(f.RecipientIDs) > 0 {
		stmt = stmt.Where("recipient_id IN ?", f.RecipientIDs)
	}
	if len(f.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", f.Statuses)
	}
	stmt = f.CreationDateRange.apply(stmt, "creation_date")
	stmt = f.ResponseDateRange.apply(stmt, "response_date")
	return stmt
}

// UpdateFriendRequestFields is the admin batch-update payload; nil fields are
// left untouched.
type UpdateFriendRequestFields struct {
	RequesterID  *int64
	RecipientID  *int64
	Content      *string
	Status       *model.RequestStatus
	Reason       *string
	CreationDate *time.Time
	ResponseDate *time.Time
}

func (u UpdateFriendRequestFields) IsEmpty() bool {
	return u.RequesterID == nil && u.RecipientID == nil && u.Content == nil &&
		u.Status == nil && u.Reason == nil && u.CreationDate == nil && u.ResponseDate == nil
}

func (u UpdateFriendRequestFields) columns() map[string]any {
	set := make(map[string]any, 7)
	if u.RequesterID != nil {
		set["requester_id"] = *u.RequesterID
	}
	if u.RecipientID != nil {
		set["recipient_id"] = *u.RecipientID
	}
	if u.Content != nil {
		set["content"] = *u.Content
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.Reason != nil {
		set["reason"] = *u.Reason
	}
	if u.CreationDate != nil {
		set["creation_date"] = *u.CreationDate
	}
	if u.ResponseDate != nil {
		set["response_date"] = *u.ResponseDate
	}
	return set
}

func (f *FriendRequestRepository) Insert(ctx context.Context, request *model.FriendRequest) error {
	err := f.db.Wrap(ctx, "FriendRequestInsert", func(tx *gorm.DB) *gorm.DB {
		return tx.Create(request)
	})
	return errors.Wrap(err, "Insert")
}

func (f *FriendRequestRepository) FindByID(ctx context.Context, id int64) (*model.FriendRequest, error) {
	var request model.FriendRequest
	err := f.db.Wrap(ctx, "FriendRequestFindByID", func(tx *gorm.DB) *gorm.DB {
		return tx.First(&request, "id = ?", id)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindByID")
	}
	return &request, nil
}

// FindHandleInfo loads the fields authorization and expiry checks need.
func (f *FriendRequestRepository) FindHandleInfo(ctx context.Context, id int64) (*model.FriendRequest, error) {
	var request model.FriendRequest
	err := f.db.Wrap(ctx, "FriendRequestFindHandleInfo", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "requester_id", "recipient_id", "creation_date", "status").
			First(&request, "id = ?", id)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindHandleInfo")
	}
	return &request, nil
}

func (f *FriendRequestRepository) FindRecipientID(ctx context.Context, id int64) (int64, error) {
	var recipientId int64
	err := f.db.Wrap(ctx, "FriendRequestFindRecipientID", func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&model.FriendRequest{}).Where("id = ?", id).
			Select("recipient_id").Take(&recipientId)
	})
	if err != nil {
		return 0, errors.Wrap(err, "FindRecipientID")
	}
	return recipientId, nil
}

// HasPendingRequest reports whether a live PENDING request requester→recipient
// exists. When expirationThreshold is non-nil, requests created before it are
// treated as expired and do not count.
func (f *FriendRequestRepository) HasPendingRequest(
	ctx context.Context,
	requesterId, recipientId int64,
	expirationThreshold *time.Time,
) (bool, error) {
	var count int64
	err := f.db.Wrap(ctx, "FriendRequestHasPending", func(tx *gorm.DB) *gorm.DB {
		stmt := tx.Model(&model.FriendRequest{}).
			Where("requester_id = ? AND recipient_id = ? AND status = ?",
				requesterId, recipientId, model.RequestStatusPending)
		if expirationThreshold != nil {
			stmt = stmt.Where("creation_date > ?", *expirationThreshold)
		}
		return stmt.Count(&count)
	})
	if err != nil {
		return false, errors.Wrap(err, "HasPendingRequest")
	}
	return count > 0, nil
}

// HasPendingOrDeclinedOrIgnoredRequest covers the strict resend policy.
// An expired request is a stored PENDING one, so the status set alone is
// enough: PENDING rows count whether or not they are past the window.
func (f *FriendRequestRepository) HasPendingOrDeclinedOrIgnoredRequest(
	ctx context.Context,
	requesterId, recipientId int64,
) (bool, error) {
	var count int64
	err := f.db.Wrap(ctx, "FriendRequestHasPendingOrDeclinedOrIgnored", func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&model.FriendRequest{}).
			Where("requester_id = ? AND recipient_id = ? AND status IN ?",
				requesterId, recipientId,
				[]model.RequestStatus{model.RequestStatusPending, model.RequestStatusDeclined, model.RequestStatusIgnored}).
			Count(&count)
	})
	if err != nil {
		return false, errors.Wrap(err, "HasPendingOrDeclinedOrIgnoredRequest")
	}
	return count > 0, nil
}

// UpdateStatusIfPending is the CAS every status transition goes through:
// the write is guarded by status = PENDING and the caller inspects the
// modified-row count to detect a lost race.
func (f *FriendRequestRepository) UpdateStatusIfPending(
	ctx context.Context,
	tx *gorm.DB,
	id int64,
	status model.RequestStatus,
	reason *string,
) (int64, error) {
	set := map[string]any{
		"status":        status,
		"response_date": time.Now(),
	}
	if reason != nil {
		set["reason"] = *reason
	}
	stmt := f.db.Session(ctx, tx).Model(&model.FriendRequest{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(set)
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "UpdateStatusIfPending")
	}
	return stmt.RowsAffected, nil
}

func (f *FriendRequestRepository) UpdateRequests(
	ctx context.Context,
	ids []int64,
	fields UpdateFriendRequestFields,
) (int64, error) {
	set := fields.columns()
	if len(set) == 0 {
		return 0, nil
	}
	stmt := f.db.Session(ctx, nil).Model(&model.FriendRequest{}).
		Where("id IN ?", ids).Updates(set)
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "UpdateRequests")
	}
	return stmt.RowsAffected, nil
}

func (f *FriendRequestRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	stmt := f.db.Session(ctx, nil).Where("id IN ?", ids).Delete(&model.FriendRequest{})
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "DeleteByIDs")
	}
	return stmt.RowsAffected, nil
}

// DeleteCreatedBefore is housekeeping for the leader-only cleanup cron;
// correctness never depends on it because expiry is a read-time projection.
func (f *FriendRequestRepository) DeleteCreatedBefore(ctx context.Context, threshold time.Time) (int64, error) {
	stmt := f.db.Session(ctx, nil).Where("creation_date < ?", threshold).Delete(&model.FriendRequest{})
	if stmt.Error != nil {
		return 0, errors.Wrap(stmt.Error, "DeleteCreatedBefore")
	}
	return stmt.RowsAffected, nil
}

func (f *FriendRequestRepository) FindByRequesterID(ctx context.Context, requesterId int64) ([]*model.FriendRequest, error) {
	requests := make([]*model.FriendRequest, 0)
	err := f.db.Wrap(ctx, "FriendRequestFindByRequesterID", func(tx *gorm.DB) *gorm.DB {
		return tx.Find(&requests, "requester_id = ?", requesterId)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindByRequesterID")
	}
	return requests, nil
}

func (f *FriendRequestRepository) FindByRecipientID(ctx context.Context, recipientId int64) ([]*model.FriendRequest, error) {
	requests := make([]*model.FriendRequest, 0)
	err := f.db.Wrap(ctx, "FriendRequestFindByRecipientID", func(tx *gorm.DB) *gorm.DB {
		return tx.Find(&requests, "recipient_id = ?", recipientId)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindByRecipientID")
	}
	return requests, nil
}

func (f *FriendRequestRepository) FindRequests(
	ctx context.Context,
	filter FriendRequestFilter,
	page, size int,
) ([]*model.FriendRequest, error) {
	requests := make([]*model.FriendRequest, 0)
	err := f.db.Wrap(ctx, "FriendRequestFindRequests", func(tx *gorm.DB) *gorm.DB {
		stmt := filter.apply(tx.Model(&model.FriendRequest{}))
		if size > 0 {
			stmt = stmt.Limit(size)
			if page > 0 {
				stmt = stmt.Offset(page * size)
			}
		}
		return stmt.Order("id").Find(&requests)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FindRequests")
	}
	return requests, nil
}

func (f *FriendRequestRepository) CountRequests(ctx context.Context, filter FriendRequestFilter) (int64, error) {
	var count int64
	err := f.db.Wrap(ctx, "FriendRequestCountRequests", func(tx *gorm.DB) *gorm.DB {
		return filter.apply(tx.Model(&model.FriendRequest{})).Count(&count)
	})
	if err != nil {
		return 0, errors.Wrap(err, "CountRequests")
	}
	return count, nil
}
