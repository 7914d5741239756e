package server

import (
	"context"
	"fmt"
	"time"

	"social-im/internal/common/middleware/mhttp"
	"social-im/internal/pkg/db"
	"social-im/internal/pkg/etcd"
	"social-im/internal/pkg/log"
	"social-im/internal/pkg/mkafka"
	"social-im/internal/pkg/redis"
	"social-im/internal/pkg/scheduler"
	"social-im/internal/social/blocklist"
	"social-im/internal/social/config"
	"social-im/internal/social/repository"
	"social-im/internal/social/service"
)

const blocklistEvictTask = "blocklist-evict"

// Server wires the repositories, services, blocklist and scheduler together
// and is what the HTTP handlers run against.
type Server struct {
	Social      *config.Store
	Redis       *redis.Redis
	KafkaWriter *mkafka.Writer
	Scheduler   *scheduler.Scheduler

	Versions       *service.VersionService
	Relationships  *service.RelationshipService
	Groups         *service.RelationshipGroupService
	FriendRequests *service.FriendRequestService
	Blocklist      *blocklist.AutoBlockManager[int64]
}

func NewServer(c *config.Config, rdb *redis.Redis, database *db.DB, kafkaWriter *mkafka.Writer, etcdCli *etcd.Client) *Server {
	social := config.NewStore(c.Social)

	requestRepo := repository.NewFriendRequestRepository(database)
	relationshipRepo := repository.NewRelationshipRepository(database)
	groupRepo := repository.NewRelationshipGroupRepository(database)
	memberRepo := repository.NewRelationshipGroupMemberRepository(database)
	versionRepo := repository.NewVersionRepository(database)

	versions := service.NewVersionService(versionRepo)
	relationships := service.NewRelationshipService(database, relationshipRepo, groupRepo, memberRepo, versions)
	groups := service.NewRelationshipGroupService(database, groupRepo, memberRepo, versions, social,
		func() *service.RelationshipService { return relationships })
	friendRequests := service.NewFriendRequestService(database, requestRepo, versions, relationships, social)

	blockMgr := blocklist.NewAutoBlockManager[int64](c.Social.AutoBlock, func(userId int64, blockDuration time.Duration) {
		if rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		key := fmt.Sprintf(mhttp.BlockedClientKey, userId)
		_, err := rdb.Wrap(ctx, func(ctx2 context.Context) (any, string, error) {
			cmd := rdb.Set(ctx2, key, "", blockDuration)
			return cmd.Val(), cmd.String(), cmd.Err()
		})
		if err != nil {
			log.Errorf("block user %d for %s: %v", userId, blockDuration, err)
		}
	})

	sched := scheduler.NewScheduler()
	// a single node without etcd is its own leader
	isLeader := func() bool { return etcdCli == nil || etcdCli.IsLeader() }
	if err := friendRequests.RegisterCleanupCron(sched, isLeader); err != nil {
		log.Errorf("register expired friend requests cleanup: %v", err)
	}
	if c.Social.AutoBlock.Enabled {
		if err := sched.Reschedule(blocklistEvictTask, "0 * * * * *", blockMgr.EvictExpired); err != nil {
			log.Errorf("register blocklist eviction: %v", err)
		}
	}

	return &Server{
		Social:         social,
		Redis:          rdb,
		KafkaWriter:    kafkaWriter,
		Scheduler:      sched,
		Versions:       versions,
		Relationships:  relationships,
		Groups:         groups,
		FriendRequests: friendRequests,
		Blocklist:      blockMgr,
	}
}

func (s *Server) Stop() {
	s.Scheduler.Stop()
}
