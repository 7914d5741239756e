package service

import (
	"testing"
	"time"

	"social-im/internal/social/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyExpiryProjection(t *testing.T) {
	now := time.Now()
	expireAfter := 3600 * time.Second
	request := &model.FriendRequest{
		Status:       model.RequestStatusPending,
		CreationDate: now.Add(-4000 * time.Second),
	}
	ApplyExpiryProjection(request, expireAfter, now)
	assert.Equal(t, model.RequestStatusExpired, request.Status)
	require.NotNil(t, request.ResponseDate)
	assert.Equal(t, request.CreationDate.Add(expireAfter), *request.ResponseDate)
}

func TestApplyExpiryProjectionInsideWindow(t *testing.T) {
	now := time.Now()
	request := &model.FriendRequest{
		Status:       model.RequestStatusPending,
		CreationDate: now.Add(-30 * time.Minute),
	}
	ApplyExpiryProjection(request, time.Hour, now)
	assert.Equal(t, model.RequestStatusPending, request.Status)
	assert.Nil(t, request.ResponseDate)
}

func TestApplyExpiryProjectionOnlyTouchesPending(t *testing.T) {
	now := time.Now()
	request := &model.FriendRequest{
		Status:       model.RequestStatusDeclined,
		CreationDate: now.Add(-48 * time.Hour),
	}
	ApplyExpiryProjection(request, time.Hour, now)
	assert.Equal(t, model.RequestStatusDeclined, request.Status)
}

func TestApplyExpiryProjectionDisabled(t *testing.T) {
	now := time.Now()
	request := &model.FriendRequest{
		Status:       model.RequestStatusPending,
		CreationDate: now.Add(-48 * time.Hour),
	}
	ApplyExpiryProjection(request, 0, now)
	assert.Equal(t, model.RequestStatusPending, request.Status)
}

func TestExpirationThreshold(t *testing.T) {
	now := time.Now()
	assert.Nil(t, ExpirationThreshold(0, now))
	assert.Nil(t, ExpirationThreshold(-time.Second, now))
	threshold := ExpirationThreshold(time.Hour, now)
	require.NotNil(t, threshold)
	assert.Equal(t, now.Add(-time.Hour), *threshold)
}

func TestDefaultResponseDate(t *testing.T) {
	now := time.Now()
	creation := now.Add(-2 * time.Hour)

	assert.Nil(t, DefaultResponseDate(model.RequestStatusPending, creation, time.Hour, now))

	for _, status := range []model.RequestStatus{
		model.RequestStatusAccepted,
		model.RequestStatusDeclined,
		model.RequestStatusIgnored,
		model.RequestStatusCanceled,
	} {
		date := DefaultResponseDate(status, creation, time.Hour, now)
		require.NotNil(t, date)
		assert.Equal(t, now, *date)
	}

	expired := DefaultResponseDate(model.RequestStatusExpired, creation, time.Hour, now)
	require.NotNil(t, expired)
	assert.Equal(t, creation.Add(time.Hour), *expired)
}

func TestIsUpToDate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Minute)

	assert.True(t, IsUpToDate(nil, nil))
	assert.True(t, IsUpToDate(&now, nil))
	assert.False(t, IsUpToDate(nil, &now))
	assert.False(t, IsUpToDate(&earlier, &now))
	assert.True(t, IsUpToDate(&now, &now))
	assert.True(t, IsUpToDate(&now, &earlier))
}
