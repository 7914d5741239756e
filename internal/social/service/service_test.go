package service

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"social-im/internal/pkg/db"
	"social-im/internal/pkg/snowflake"
	"social-im/internal/social/config"
	"social-im/internal/social/model"
	"social-im/internal/social/repository"

	"github.com/stretchr/testify/require"
)

var snowflakeOnce sync.Once

type fixture struct {
	db       *db.DB
	store    *config.Store
	versions *VersionService

	relationships *RelationshipService
	groups        *RelationshipGroupService
	requests      *FriendRequestService

	requestRepo      *repository.FriendRequestRepository
	relationshipRepo *repository.RelationshipRepository
	groupRepo        *repository.RelationshipGroupRepository
	memberRepo       *repository.RelationshipGroupMemberRepository
}

func defaultSocialConfig() config.SocialConfig {
	return config.SocialConfig{
		FriendRequest: config.FriendRequestConfig{
			AllowRecallPendingFriendRequestBySender: true,
		},
	}
}

func repositoryFilterByRecipient(recipientId int64) repository.FriendRequestFilter {
	return repository.FriendRequestFilter{RecipientIDs: []int64{recipientId}}
}

func updateStatusFields(status *model.RequestStatus) repository.UpdateFriendRequestFields {
	return repository.UpdateFriendRequestFields{Status: status}
}

// newFixture wires the whole service stack against an in-memory store, one
// database per test.
func newFixture(t *testing.T, social config.SocialConfig) *fixture {
	t.Helper()
	snowflakeOnce.Do(func() { snowflake.InitSnowflake(1) })
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000",
		strings.ReplaceAll(t.Name(), "/", "_"))
	database := db.NewDB(db.Config{Driver: db.SQLite, DbName: dsn})
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.AutoMigrate(
		&model.FriendRequest{},
		&model.Relationship{},
		&model.RelationshipGroup{},
		&model.RelationshipGroupMember{},
		&model.UserVersion{},
	))

	store := config.NewStore(social)
	requestRepo := repository.NewFriendRequestRepository(database)
	relationshipRepo := repository.NewRelationshipRepository(database)
	groupRepo := repository.NewRelationshipGroupRepository(database)
	memberRepo := repository.NewRelationshipGroupMemberRepository(database)
	versions := NewVersionService(repository.NewVersionRepository(database))

	relationships := NewRelationshipService(database, relationshipRepo, groupRepo, memberRepo, versions)
	groups := NewRelationshipGroupService(database, groupRepo, memberRepo, versions, store,
		func() *RelationshipService { return relationships })
	requests := NewFriendRequestService(database, requestRepo, versions, relationships, store)

	return &fixture{
		db:               database,
		store:            store,
		versions:         versions,
		relationships:    relationships,
		groups:           groups,
		requests:         requests,
		requestRepo:      requestRepo,
		relationshipRepo: relationshipRepo,
		groupRepo:        groupRepo,
		memberRepo:       memberRepo,
	}
}
