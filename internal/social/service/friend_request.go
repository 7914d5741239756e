package service

import (
	"context"
	"time"

	"social-im/internal/common/errcode"
	"social-im/internal/pkg/db"
	"social-im/internal/pkg/log"
	"social-im/internal/pkg/scheduler"
	"social-im/internal/pkg/snowflake"
	"social-im/internal/social/config"
	"social-im/internal/social/model"
	"social-im/internal/social/repository"

	"gorm.io/gorm"
)

const expiredRequestsCleanupTask = "expired-friend-requests-cleanup"

// FriendRequestService owns the friend-request lifecycle: creation,
// recalling by the sender, handling by the recipient, and incremental-sync
// queries. Expiry is applied as a read-time projection, never written back.
type FriendRequestService struct {
	db            *db.DB
	requests      *repository.FriendRequestRepository
	versions      *VersionService
	relationships *RelationshipService
	cfg           *config.Store
}

func NewFriendRequestService(
	database *db.DB,
	requests *repository.FriendRequestRepository,
	versions *VersionService,
	relationships *RelationshipService,
	cfg *config.Store,
) *FriendRequestService {
	return &FriendRequestService{
		db:            database,
		requests:      requests,
		versions:      versions,
		relationships: relationships,
		cfg:           cfg,
	}
}

func (s *FriendRequestService) expireAfter() time.Duration {
	return time.Duration(s.cfg.Load().FriendRequest.ExpireAfterSeconds) * time.Second
}

// RegisterCleanupCron schedules the leader-only housekeeping sweep that
// deletes requests older than the expiry window. Correctness never depends on
// it: expiry is a read-time projection.
func (s *FriendRequestService) RegisterCleanupCron(sched *scheduler.Scheduler, isLeader func() bool) error {
	cfg := s.cfg.Load().FriendRequest
	if !cfg.DeleteExpiredRequestsWhenCronTriggered || cfg.ExpireAfterSeconds <= 0 || cfg.ExpiredRequestsCleanupCron == "" {
		return nil
	}
	return sched.Reschedule(expiredRequestsCleanupTask, cfg.ExpiredRequestsCleanupCron, func() {
		if !isLeader() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deleted, err := s.DeleteExpiredRequests(ctx)
		if err != nil {
			log.Errorf("expired friend requests cleanup failed: %v", err)
			return
		}
		if deleted > 0 {
			log.Infof("expired friend requests cleanup deleted %d requests", deleted)
		}
	})
}

// DeleteExpiredRequests removes every request created before the expiry
// window. It is a no-op when projection is disabled.
func (s *FriendRequestService) DeleteExpiredRequests(ctx context.Context) (int64, error) {
	threshold := ExpirationThreshold(s.expireAfter(), time.Now())
	if threshold == nil {
		return 0, nil
	}
	return s.requests.DeleteCreatedBefore(ctx, *threshold)
}

// CreateRequestParams is the admin creation payload. Nil fields take their
// documented defaults.
type CreateRequestParams struct {
	ID           *int64
	RequesterID  int64
	RecipientID  int64
	Content      string
	Status       *model.RequestStatus
	Reason       *string
	CreationDate *time.Time
	ResponseDate *time.Time
}

// CreateRequest persists a request without authorization checks (admin path).
// On success both parties' version rows are bumped best-effort.
func (s *FriendRequestService) CreateRequest(ctx context.Context, params CreateRequestParams) (*model.FriendRequest, error) {
	cfg := s.cfg.Load().FriendRequest
	if params.RequesterID == params.RecipientID {
		return nil, errcode.ErrIllegalArgument.WithDetail("the requester and the recipient must differ")
	}
	if cfg.MaxContentLength > 0 && len(params.Content) > cfg.MaxContentLength {
		return nil, errcode.ErrIllegalArgument.WithDetail("content must not exceed %d bytes", cfg.MaxContentLength)
	}
	if params.Reason != nil && cfg.MaxResponseReasonLength > 0 && len(*params.Reason) > cfg.MaxResponseReasonLength {
		return nil, errcode.ErrIllegalArgument.WithDetail("reason must not exceed %d bytes", cfg.MaxResponseReasonLength)
	}
	status := model.RequestStatusPending
	if params.Status != nil {
		if !params.Status.IsStorable() {
			return nil, errcode.ErrIllegalArgument.WithDetail("status %s cannot be stored", *params.Status)
		}
		status = *params.Status
	}
	now := time.Now()
	creationDate := now
	if params.CreationDate != nil && params.CreationDate.Before(now) {
		creationDate = *params.CreationDate
	}
	responseDate := params.ResponseDate
	if responseDate == nil {
		responseDate = DefaultResponseDate(status, creationDate, s.expireAfter(), now)
	} else if responseDate.After(now) {
		return nil, errcode.ErrIllegalArgument.WithDetail("the response date must not be in the future")
	}
	id := snowflake.NextID()
	if params.ID != nil {
		id = *params.ID
	}
	request := &model.FriendRequest{
		ID:           id,
		RequesterID:  params.RequesterID,
		RecipientID:  params.RecipientID,
		Content:      params.Content,
		Status:       status,
		Reason:       params.Reason,
		CreationDate: creationDate,
		ResponseDate: responseDate,
	}
	if err := s.requests.Insert(ctx, request); err != nil {
		return nil, err
	}
	s.versions.BumpSentRequests(ctx, request.RequesterID)
	s.versions.BumpReceivedRequests(ctx, request.RecipientID)
	return request, nil
}

// AuthAndCreateRequest is the user path. It rejects requests to users who
// blocked the requester and enforces the resend policy before delegating to
// CreateRequest.
func (s *FriendRequestService) AuthAndCreateRequest(
	ctx context.Context,
	requesterId, recipientId int64,
	content *string,
	creationDate *time.Time,
) (*model.FriendRequest, error) {
	if requesterId == recipientId {
		return nil, errcode.ErrIllegalArgument.WithDetail("the requester and the recipient must differ")
	}
	blocked, err := s.relationships.IsBlocked(ctx, recipientId, requesterId)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, errcode.ErrBlockedUserSendFriendRequest
	}
	var exists bool
	if s.cfg.Load().FriendRequest.AllowSendRequestAfterDeclinedOrIgnoredOrExpired {
		// only a live PENDING request prohibits resending; the threshold
		// discounts PENDING rows the projector would report as EXPIRED
		exists, err = s.requests.HasPendingRequest(ctx, requesterId, recipientId,
			ExpirationThreshold(s.expireAfter(), time.Now()))
	} else {
		exists, err = s.requests.HasPendingOrDeclinedOrIgnoredRequest(ctx, requesterId, recipientId)
	}
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errcode.ErrCreateExistingFriendRequest
	}
	normalized := ""
	if content != nil {
		normalized = *content
	}
	return s.CreateRequest(ctx, CreateRequestParams{
		RequesterID:  requesterId,
		RecipientID:  recipientId,
		Content:      normalized,
		CreationDate: creationDate,
	})
}

// AuthAndRecallRequest cancels a pending request the caller sent. The same
// error code covers "no such request" and "caller is not the sender" so the
// response leaks no existence information.
func (s *FriendRequestService) AuthAndRecallRequest(ctx context.Context, callerId, requestId int64) error {
	if !s.cfg.Load().FriendRequest.AllowRecallPendingFriendRequestBySender {
		return errcode.ErrRecallingFriendRequestDisabled
	}
	info, err := s.requests.FindHandleInfo(ctx, requestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			return errcode.ErrNotSenderToRecallFriendRequest
		}
		return err
	}
	if info.RequesterID != callerId {
		return errcode.ErrNotSenderToRecallFriendRequest
	}
	if err = checkPending(info, s.expireAfter(), errcode.ErrRecallNonPendingFriendRequest); err != nil {
		return err
	}
	rows, err := s.requests.UpdateStatusIfPending(ctx, nil, requestId, model.RequestStatusCanceled, nil)
	if err != nil {
		return err
	}
	if rows == 0 {
		// lost the race to a concurrent response or an admin delete
		return errcode.ErrRecallNonPendingFriendRequest
	}
	s.versions.BumpSentRequests(ctx, info.RequesterID)
	s.versions.BumpReceivedRequests(ctx, info.RecipientID)
	return nil
}

// checkPending fails with nonPendingErr, carrying the effective status, when
// the request is no longer actionable. A stored PENDING request past the
// expiry window counts as EXPIRED.
func checkPending(info *model.FriendRequest, expireAfter time.Duration, nonPendingErr *errcode.Error) error {
	if info.Status != model.RequestStatusPending {
		return nonPendingErr.WithDetail("the friend request is %s", info.Status)
	}
	if IsProjectedExpired(info.Status, info.CreationDate, expireAfter, time.Now()) {
		return nonPendingErr.WithDetail("the friend request is %s", model.RequestStatusExpired)
	}
	return nil
}

// HandleResult is what handling a request produces. The group indexes are set
// only on ACCEPT: the group on each side that received the new relationship.
type HandleResult struct {
	RequesterID         int64
	RecipientID         int64
	RequesterGroupIndex *int32
	RecipientGroupIndex *int32
}

// AuthAndHandleRequest lets the recipient accept, decline or ignore a pending
// request. ACCEPT runs the status CAS and the friendship creation in one
// store transaction, retried on transient transaction errors; the other
// actions are a plain CAS.
func (s *FriendRequestService) AuthAndHandleRequest(
	ctx context.Context,
	callerId, requestId int64,
	action model.RequestStatus,
	reason *string,
) (*HandleResult, error) {
	if action != model.RequestStatusAccepted && action != model.RequestStatusDeclined && action != model.RequestStatusIgnored {
		return nil, errcode.ErrIllegalArgument.WithDetail("the action must be one of ACCEPTED, DECLINED and IGNORED")
	}
	cfg := s.cfg.Load().FriendRequest
	if reason != nil && cfg.MaxResponseReasonLength > 0 && len(*reason) > cfg.MaxResponseReasonLength {
		return nil, errcode.ErrIllegalArgument.WithDetail("reason must not exceed %d bytes", cfg.MaxResponseReasonLength)
	}
	info, err := s.requests.FindHandleInfo(ctx, requestId)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, errcode.ErrNotRecipientToUpdateFriendRequest
		}
		return nil, err
	}
	if info.RecipientID != callerId {
		return nil, errcode.ErrNotRecipientToUpdateFriendRequest
	}
	if err = checkPending(info, s.expireAfter(), errcode.ErrUpdateNonPendingFriendRequest); err != nil {
		return nil, err
	}
	result := &HandleResult{RequesterID: info.RequesterID, RecipientID: info.RecipientID}
	if action == model.RequestStatusAccepted {
		err = s.db.TransactionWithRetry(ctx, func(tx *gorm.DB) error {
			rows, err := s.requests.UpdateStatusIfPending(ctx, tx, requestId, model.RequestStatusAccepted, reason)
			if err != nil {
				return err
			}
			if rows == 0 {
				return errcode.ErrUpdateNonPendingFriendRequest
			}
			requesterIndex, recipientIndex, err := s.relationships.FriendTwoUsers(ctx, info.RequesterID, info.RecipientID, tx)
			if err != nil {
				return err
			}
			result.RequesterGroupIndex = &requesterIndex
			result.RecipientGroupIndex = &recipientIndex
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.versions.BumpGroupMembers(ctx, info.RequesterID, info.RecipientID)
	} else {
		rows, err := s.requests.UpdateStatusIfPending(ctx, nil, requestId, action, reason)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, errcode.ErrUpdateNonPendingFriendRequest
		}
	}
	s.versions.BumpSentRequests(ctx, info.RequesterID)
	s.versions.BumpReceivedRequests(ctx, info.RecipientID)
	return result, nil
}

// UpdatePendingStatus moves a request out of PENDING without authorization
// checks (internal helper). Setting PENDING itself is rejected. Returns
// whether the CAS won.
func (s *FriendRequestService) UpdatePendingStatus(ctx context.Context, requestId int64, status model.RequestStatus, reason *string) (bool, error) {
	if status == model.RequestStatusPending || !status.IsStorable() {
		return false, errcode.ErrIllegalArgument.WithDetail("status %s cannot be set on a pending request", status)
	}
	rows, err := s.requests.UpdateStatusIfPending(ctx, nil, requestId, status, reason)
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}
	recipientId, err := s.requests.FindRecipientID(ctx, requestId)
	if err != nil {
		log.Errorf("find recipient of friend request %d failed: %v", requestId, err)
		return true, nil
	}
	s.versions.BumpReceivedRequests(ctx, recipientId)
	return true, nil
}

// QueryRequestsWithVersion streams the requests a user sent or received for
// incremental sync, with the expiry projection applied.
func (s *FriendRequestService) QueryRequestsWithVersion(
	ctx context.Context,
	userId int64,
	areSentByUser bool,
	lastUpdated *time.Time,
) ([]*model.FriendRequest, *time.Time, error) {
	var (
		version *time.Time
		err     error
	)
	if areSentByUser {
		version, err = s.versions.QuerySentRequestsVersion(ctx, userId)
	} else {
		version, err = s.versions.QueryReceivedRequestsVersion(ctx, userId)
	}
	if err != nil {
		return nil, nil, err
	}
	if IsUpToDate(lastUpdated, version) {
		return nil, nil, errcode.ErrAlreadyUpToDate
	}
	var requests []*model.FriendRequest
	if areSentByUser {
		requests, err = s.requests.FindByRequesterID(ctx, userId)
	} else {
		requests, err = s.requests.FindByRecipientID(ctx, userId)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(requests) == 0 {
		return nil, nil, errcode.ErrNoContent
	}
	ApplyExpiryProjectionAll(requests, s.expireAfter(), time.Now())
	return requests, version, nil
}

// FindRequests is the admin filtered list, with the projection applied.
func (s *FriendRequestService) FindRequests(ctx context.Context, filter repository.FriendRequestFilter, page, size int) ([]*model.FriendRequest, error) {
	requests, err := s.requests.FindRequests(ctx, filter, page, size)
	if err != nil {
		return nil, err
	}
	ApplyExpiryProjectionAll(requests, s.expireAfter(), time.Now())
	return requests, nil
}

func (s *FriendRequestService) CountRequests(ctx context.Context, filter repository.FriendRequestFilter) (int64, error) {
	return s.requests.CountRequests(ctx, filter)
}

// UpdateRequests is the admin batch update. No version side-effects.
func (s *FriendRequestService) UpdateRequests(ctx context.Context, ids []int64, fields repository.UpdateFriendRequestFields) (int64, error) {
	if len(ids) == 0 || fields.IsEmpty() {
		return 0, nil
	}
	if fields.Status != nil && !fields.Status.IsStorable() {
		return 0, errcode.ErrIllegalArgument.WithDetail("status %s cannot be stored", *fields.Status)
	}
	return s.requests.UpdateRequests(ctx, ids, fields)
}

func (s *FriendRequestService) DeleteRequests(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.requests.DeleteByIDs(ctx, ids)
}
