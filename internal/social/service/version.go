package service

import (
	"context"
	"time"

	"social-im/internal/pkg/db"
	"social-im/internal/pkg/log"
	"social-im/internal/social/model"
	"social-im/internal/social/repository"
)

// VersionService fronts the per-user, per-stream last-updated timestamps that
// clients compare against to decide whether to fetch. Bumps are best-effort:
// version rows are a sync cache, not authoritative state, so a failed bump is
// logged and swallowed rather than failing the owning mutation.
type VersionService struct {
	versions *repository.VersionRepository
}

func NewVersionService(versions *repository.VersionRepository) *VersionService {
	return &VersionService{versions: versions}
}

func (s *VersionService) BumpSentRequests(ctx context.Context, userIds ...int64) {
	s.bump(ctx, repository.VersionSentRequests, userIds)
}

func (s *VersionService) BumpReceivedRequests(ctx context.Context, userIds ...int64) {
	s.bump(ctx, repository.VersionReceivedRequests, userIds)
}

func (s *VersionService) BumpRelationshipGroups(ctx context.Context, userIds ...int64) {
	s.bump(ctx, repository.VersionRelationshipGroups, userIds)
}

func (s *VersionService) BumpGroupMembers(ctx context.Context, userIds ...int64) {
	s.bump(ctx, repository.VersionGroupMembers, userIds)
}

func (s *VersionService) bump(ctx context.Context, column string, userIds []int64) {
	if err := s.versions.TouchAll(ctx, userIds, column, time.Now()); err != nil {
		log.Errorf("bump %s version for users %v failed: %v", column, userIds, err)
	}
}

func (s *VersionService) QuerySentRequestsVersion(ctx context.Context, userId int64) (*time.Time, error) {
	row, err := s.find(ctx, userId)
	if err != nil || row == nil {
		return nil, err
	}
	return row.SentRequestsDate, nil
}

func (s *VersionService) QueryReceivedRequestsVersion(ctx context.Context, userId int64) (*time.Time, error) {
	row, err := s.find(ctx, userId)
	if err != nil || row == nil {
		return nil, err
	}
	return row.ReceivedRequestsDate, nil
}

func (s *VersionService) QueryRelationshipGroupsVersion(ctx context.Context, userId int64) (*time.Time, error) {
	row, err := s.find(ctx, userId)
	if err != nil || row == nil {
		return nil, err
	}
	return row.RelationshipGroupsDate, nil
}

func (s *VersionService) QueryGroupMembersVersion(ctx context.Context, userId int64) (*time.Time, error) {
	row, err := s.find(ctx, userId)
	if err != nil || row == nil {
		return nil, err
	}
	return row.GroupMembersDate, nil
}

// find maps "no row yet" to nil rather than an error.
func (s *VersionService) find(ctx context.Context, userId int64) (*model.UserVersion, error) {
	row, err := s.versions.Find(ctx, userId)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// IsUpToDate reports whether a client that last synced at lastUpdated needs no
// refresh against the server-side version. A nil server version means nothing
// was ever written for the stream, so the client cannot be stale.
func IsUpToDate(lastUpdated, version *time.Time) bool {
	if version == nil {
		return true
	}
	if lastUpdated == nil {
		return false
	}
	return !lastUpdated.Before(*version)
}
