package service

import (
	"context"
	"testing"
	"time"

	"social-im/internal/common/errcode"
	"social-im/internal/social/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCreateAndQueryRoundTrip(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, strPtr("hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, created.Status)
	assert.NotZero(t, created.ID)

	received, version, err := f.requests.QueryRequestsWithVersion(ctx, 2, false, nil)
	require.NoError(t, err)
	require.NotNil(t, version)
	require.Len(t, received, 1)
	assert.Equal(t, "hello", received[0].Content)
	assert.Equal(t, int64(1), received[0].RequesterID)
	assert.Equal(t, int64(2), received[0].RecipientID)
	assert.Equal(t, model.RequestStatusPending, received[0].Status)

	sent, _, err := f.requests.QueryRequestsWithVersion(ctx, 1, true, nil)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, created.ID, sent[0].ID)
}

func TestQueryRequestsAlreadyUpToDate(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	// nothing was ever written for this user
	_, _, err := f.requests.QueryRequestsWithVersion(ctx, 42, false, nil)
	assert.ErrorIs(t, err, errcode.ErrAlreadyUpToDate)

	_, err = f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)
	_, version, err := f.requests.QueryRequestsWithVersion(ctx, 2, false, nil)
	require.NoError(t, err)

	_, _, err = f.requests.QueryRequestsWithVersion(ctx, 2, false, version)
	assert.ErrorIs(t, err, errcode.ErrAlreadyUpToDate)
}

func TestCreateRequestNormalizesNilContent(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())

	created, err := f.requests.AuthAndCreateRequest(context.Background(), 1, 2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "", created.Content)
}

func TestCreateRequestValidation(t *testing.T) {
	social := defaultSocialConfig()
	social.FriendRequest.MaxContentLength = 5
	f := newFixture(t, social)
	ctx := context.Background()

	_, err := f.requests.AuthAndCreateRequest(ctx, 1, 1, nil, nil)
	assert.ErrorIs(t, err, errcode.ErrIllegalArgument)

	_, err = f.requests.AuthAndCreateRequest(ctx, 1, 2, strPtr("too long content"), nil)
	assert.ErrorIs(t, err, errcode.ErrIllegalArgument)

	expired := model.RequestStatusExpired
	_, err = f.requests.CreateRequest(ctx, CreateRequestParams{RequesterID: 1, RecipientID: 2, Status: &expired})
	assert.ErrorIs(t, err, errcode.ErrIllegalArgument)
}

func TestCreateRequestClampsCreationDate(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())

	future := time.Now().Add(time.Hour)
	created, err := f.requests.CreateRequest(context.Background(), CreateRequestParams{
		RequesterID:  1,
		RecipientID:  2,
		CreationDate: &future,
	})
	require.NoError(t, err)
	assert.False(t, created.CreationDate.After(time.Now()))
}

func TestCreateRequestRejectsFutureResponseDate(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())

	future := time.Now().Add(time.Hour)
	declined := model.RequestStatusDeclined
	_, err := f.requests.CreateRequest(context.Background(), CreateRequestParams{
		RequesterID:  1,
		RecipientID:  2,
		Status:       &declined,
		ResponseDate: &future,
	})
	assert.ErrorIs(t, err, errcode.ErrIllegalArgument)
}

func TestCreateRequestBlockedRequester(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	require.NoError(t, f.relationships.UpsertOneSidedRelationship(ctx, 2, 1, true))
	_, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	assert.ErrorIs(t, err, errcode.ErrBlockedUserSendFriendRequest)

	// the block is one-sided: 2 can still request 1
	_, err = f.requests.AuthAndCreateRequest(ctx, 2, 1, nil, nil)
	assert.NoError(t, err)
}

func TestResendPolicy(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)
	_, err = f.requests.AuthAndHandleRequest(ctx, 2, created.ID, model.RequestStatusDeclined, nil)
	require.NoError(t, err)

	// strict policy: a declined request still prohibits resending
	_, err = f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	assert.ErrorIs(t, err, errcode.ErrCreateExistingFriendRequest)

	social := defaultSocialConfig()
	social.FriendRequest.AllowSendRequestAfterDeclinedOrIgnoredOrExpired = true
	f.store.Replace(social)

	_, err = f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	assert.NoError(t, err)
}

func TestResendBlockedByPendingRequest(t *testing.T) {
	social := defaultSocialConfig()
	social.FriendRequest.AllowSendRequestAfterDeclinedOrIgnoredOrExpired = true
	f := newFixture(t, social)
	ctx := context.Background()

	_, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)
	_, err = f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	assert.ErrorIs(t, err, errcode.ErrCreateExistingFriendRequest)
}

func TestResendAllowedAfterProjectedExpiry(t *testing.T) {
	social := defaultSocialConfig()
	social.FriendRequest.AllowSendRequestAfterDeclinedOrIgnoredOrExpired = true
	social.FriendRequest.ExpireAfterSeconds = 3600
	f := newFixture(t, social)
	ctx := context.Background()

	stale := time.Now().Add(-4000 * time.Second)
	_, err := f.requests.CreateRequest(ctx, CreateRequestParams{
		RequesterID:  1,
		RecipientID:  2,
		CreationDate: &stale,
	})
	require.NoError(t, err)

	// the stored request is PENDING but projected EXPIRED, so it does not count
	_, err = f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	assert.NoError(t, err)
}

func TestRecallDisabled(t *testing.T) {
	social := defaultSocialConfig()
	social.FriendRequest.AllowRecallPendingFriendRequestBySender = false
	f := newFixture(t, social)

	err := f.requests.AuthAndRecallRequest(context.Background(), 1, 12345)
	assert.ErrorIs(t, err, errcode.ErrRecallingFriendRequestDisabled)
}

func TestRecallExistenceNonLeakage(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)

	missingErr := f.requests.AuthAndRecallRequest(ctx, 1, created.ID+1)
	notSenderErr := f.requests.AuthAndRecallRequest(ctx, 3, created.ID)
	assert.ErrorIs(t, missingErr, errcode.ErrNotSenderToRecallFriendRequest)
	assert.ErrorIs(t, notSenderErr, errcode.ErrNotSenderToRecallFriendRequest)
	// even the recipient cannot recall
	assert.ErrorIs(t, f.requests.AuthAndRecallRequest(ctx, 2, created.ID), errcode.ErrNotSenderToRecallFriendRequest)
}

func TestRecallPendingRequest(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.requests.AuthAndRecallRequest(ctx, 1, created.ID))

	stored, err := f.requestRepo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCanceled, stored.Status)
	assert.NotNil(t, stored.ResponseDate)
}

func TestRecallLosesRaceToHandle(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 7, 8, nil, nil)
	require.NoError(t, err)
	_, err = f.requests.AuthAndHandleRequest(ctx, 8, created.ID, model.RequestStatusAccepted, nil)
	require.NoError(t, err)

	err = f.requests.AuthAndRecallRequest(ctx, 7, created.ID)
	assert.ErrorIs(t, err, errcode.ErrRecallNonPendingFriendRequest)
}

func TestHandleLosesRaceToRecall(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 7, 8, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.requests.AuthAndRecallRequest(ctx, 7, created.ID))

	_, err = f.requests.AuthAndHandleRequest(ctx, 8, created.ID, model.RequestStatusAccepted, nil)
	assert.ErrorIs(t, err, errcode.ErrUpdateNonPendingFriendRequest)
}

func TestHandleAcceptFriendsBothUsers(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)
	result, err := f.requests.AuthAndHandleRequest(ctx, 2, created.ID, model.RequestStatusAccepted, nil)
	require.NoError(t, err)
	require.NotNil(t, result.RequesterGroupIndex)
	require.NotNil(t, result.RecipientGroupIndex)
	assert.Equal(t, model.DefaultGroupIndex, *result.RequesterGroupIndex)
	assert.Equal(t, model.DefaultGroupIndex, *result.RecipientGroupIndex)

	stored, err := f.requestRepo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, stored.Status)

	for _, pair := range [][2]int64{{1, 2}, {2, 1}} {
		relationship, err := f.relationshipRepo.FindOne(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, relationship.IsBlocked)
		ids, err := f.memberRepo.FindMemberIDs(ctx, pair[0], model.DefaultGroupIndex)
		require.NoError(t, err)
		assert.Contains(t, ids, pair[1])
	}
}

func TestHandleDeclineStoresReason(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)
	_, err = f.requests.AuthAndHandleRequest(ctx, 2, created.ID, model.RequestStatusDeclined, strPtr("no thanks"))
	require.NoError(t, err)

	stored, err := f.requestRepo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusDeclined, stored.Status)
	require.NotNil(t, stored.Reason)
	assert.Equal(t, "no thanks", *stored.Reason)

	// declining does not friend the users
	_, err = f.relationshipRepo.FindOne(ctx, 1, 2)
	assert.Error(t, err)
}

func TestHandleExistenceNonLeakage(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)

	_, missingErr := f.requests.AuthAndHandleRequest(ctx, 2, created.ID+1, model.RequestStatusAccepted, nil)
	_, notRecipientErr := f.requests.AuthAndHandleRequest(ctx, 3, created.ID, model.RequestStatusAccepted, nil)
	assert.ErrorIs(t, missingErr, errcode.ErrNotRecipientToUpdateFriendRequest)
	assert.ErrorIs(t, notRecipientErr, errcode.ErrNotRecipientToUpdateFriendRequest)
}

func TestHandleRejectsUnknownAction(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())

	_, err := f.requests.AuthAndHandleRequest(context.Background(), 2, 1, model.RequestStatusCanceled, nil)
	assert.ErrorIs(t, err, errcode.ErrIllegalArgument)
}

func TestProjectedExpiryLeavesStoreUntouched(t *testing.T) {
	social := defaultSocialConfig()
	social.FriendRequest.ExpireAfterSeconds = 3600
	f := newFixture(t, social)
	ctx := context.Background()

	stale := time.Now().Add(-4000 * time.Second)
	created, err := f.requests.CreateRequest(ctx, CreateRequestParams{
		RequesterID:  1,
		RecipientID:  2,
		CreationDate: &stale,
	})
	require.NoError(t, err)

	requests, _, err := f.requests.QueryRequestsWithVersion(ctx, 2, false, nil)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, model.RequestStatusExpired, requests[0].Status)
	require.NotNil(t, requests[0].ResponseDate)
	assert.WithinDuration(t, created.CreationDate.Add(3600*time.Second), *requests[0].ResponseDate, time.Second)

	// a direct read still sees PENDING: the projector never writes
	stored, err := f.requestRepo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, stored.Status)

	// handling the expired request fails as non-pending
	_, err = f.requests.AuthAndHandleRequest(ctx, 2, created.ID, model.RequestStatusAccepted, nil)
	assert.ErrorIs(t, err, errcode.ErrUpdateNonPendingFriendRequest)
	err = f.requests.AuthAndRecallRequest(ctx, 1, created.ID)
	assert.ErrorIs(t, err, errcode.ErrRecallNonPendingFriendRequest)
}

func TestUpdatePendingStatus(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	created, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)

	_, err = f.requests.UpdatePendingStatus(ctx, created.ID, model.RequestStatusPending, nil)
	assert.ErrorIs(t, err, errcode.ErrIllegalArgument)

	won, err := f.requests.UpdatePendingStatus(ctx, created.ID, model.RequestStatusIgnored, nil)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = f.requests.UpdatePendingStatus(ctx, created.ID, model.RequestStatusDeclined, nil)
	require.NoError(t, err)
	assert.False(t, won)

	stored, err := f.requestRepo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusIgnored, stored.Status)
}

func TestVersionMonotonicity(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	var last *time.Time
	for i := 0; i < 3; i++ {
		_, err := f.requests.AuthAndCreateRequest(ctx, int64(10+i), 2, nil, nil)
		require.NoError(t, err)
		version, err := f.versions.QueryReceivedRequestsVersion(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, version)
		if last != nil {
			assert.False(t, version.Before(*last))
		}
		last = version
	}
}

func TestAdminQueriesAndBatchUpdate(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())
	ctx := context.Background()

	first, err := f.requests.AuthAndCreateRequest(ctx, 1, 2, nil, nil)
	require.NoError(t, err)
	second, err := f.requests.AuthAndCreateRequest(ctx, 3, 2, nil, nil)
	require.NoError(t, err)

	found, err := f.requests.FindRequests(ctx, repositoryFilterByRecipient(2), 0, 0)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	count, err := f.requests.CountRequests(ctx, repositoryFilterByRecipient(2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	declined := model.RequestStatusDeclined
	updated, err := f.requests.UpdateRequests(ctx, []int64{first.ID}, updateStatusFields(&declined))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	deleted, err := f.requests.DeleteRequests(ctx, []int64{first.ID, second.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestDeleteExpiredRequests(t *testing.T) {
	social := defaultSocialConfig()
	social.FriendRequest.ExpireAfterSeconds = 3600
	f := newFixture(t, social)
	ctx := context.Background()

	stale := time.Now().Add(-4000 * time.Second)
	_, err := f.requests.CreateRequest(ctx, CreateRequestParams{RequesterID: 1, RecipientID: 2, CreationDate: &stale})
	require.NoError(t, err)
	_, err = f.requests.AuthAndCreateRequest(ctx, 3, 2, nil, nil)
	require.NoError(t, err)

	deleted, err := f.requests.DeleteExpiredRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := f.requests.CountRequests(ctx, repositoryFilterByRecipient(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteExpiredRequestsDisabled(t *testing.T) {
	f := newFixture(t, defaultSocialConfig())

	deleted, err := f.requests.DeleteExpiredRequests(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
