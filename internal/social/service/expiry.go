package service

import (
	"time"

	"social-im/internal/social/model"
)

// The expiry of a friend request is a read-time projection: a stored PENDING
// request older than the configured window is returned as EXPIRED, but the
// store is never mutated. expireAfter <= 0 disables the projection.

// IsProjectedExpired reports whether a stored PENDING request falls past the
// expiry window at the given instant.
func IsProjectedExpired(status model.RequestStatus, creationDate time.Time, expireAfter time.Duration, now time.Time) bool {
	return expireAfter > 0 &&
		status == model.RequestStatusPending &&
		now.Sub(creationDate) > expireAfter
}

// ApplyExpiryProjection rewrites the request in place to its projected view:
// EXPIRED with responseDate = creationDate + expireAfter. Callers hand it the
// record they are about to return, never one they are about to persist.
func ApplyExpiryProjection(request *model.FriendRequest, expireAfter time.Duration, now time.Time) {
	if !IsProjectedExpired(request.Status, request.CreationDate, expireAfter, now) {
		return
	}
	request.Status = model.RequestStatusExpired
	responseDate := request.CreationDate.Add(expireAfter)
	request.ResponseDate = &responseDate
}

func ApplyExpiryProjectionAll(requests []*model.FriendRequest, expireAfter time.Duration, now time.Time) {
	for _, request := range requests {
		ApplyExpiryProjection(request, expireAfter, now)
	}
}

// ExpirationThreshold returns the creation-date cutoff below which a stored
// PENDING request counts as expired, or nil when projection is disabled.
func ExpirationThreshold(expireAfter time.Duration, now time.Time) *time.Time {
	if expireAfter <= 0 {
		return nil
	}
	threshold := now.Add(-expireAfter)
	return &threshold
}

// DefaultResponseDate is the responseDate a newly stored record gets when the
// caller supplies a status but no responseDate: now for the terminal statuses,
// the projected expiry instant for EXPIRED, nil for PENDING.
func DefaultResponseDate(status model.RequestStatus, creationDate time.Time, expireAfter time.Duration, now time.Time) *time.Time {
	switch status {
	case model.RequestStatusAccepted, model.RequestStatusDeclined,
		model.RequestStatusIgnored, model.RequestStatusCanceled:
		return &now
	case model.RequestStatusExpired:
		if expireAfter > 0 {
			responseDate := creationDate.Add(expireAfter)
			return &responseDate
		}
		return &now
	}
	return nil
}
