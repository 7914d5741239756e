package config

import (
	"os"
	"sync/atomic"

	"social-im/internal/common/jwt"
	"social-im/internal/pkg/db"
	"social-im/internal/pkg/etcd"
	"social-im/internal/pkg/log"
	"social-im/internal/pkg/mkafka"
	"social-im/internal/pkg/mprometheus"
	"social-im/internal/pkg/mtrace"
	"social-im/internal/pkg/redis"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr     string      `json:"addr" yaml:"addr"`
	GrpcAddr string      `json:"grpc_addr" yaml:"grpc_addr"`
	NodeID   int64       `json:"node_id" yaml:"node_id"`
	Etcd     etcd.Config `json:"etcd" yaml:"etcd"`
}

type Config struct {
	Debug      bool               `json:"debug" yaml:"debug"`
	Server     ServerConfig       `json:"server" yaml:"server"`
	Mysql      db.Config          `json:"mysql" yaml:"mysql"`
	Redis      redis.Config       `json:"redis" yaml:"redis"`
	Kafka      mkafka.Config      `json:"kafka" yaml:"kafka"`
	JWT        jwt.Config         `json:"jwt" yaml:"jwt"`
	Log        log.Config         `json:"log" yaml:"log"`
	Trace      mtrace.Config      `json:"trace" yaml:"trace"`
	Prometheus mprometheus.Config `json:"prometheus" yaml:"prometheus"`
	Social     SocialConfig       `json:"social" yaml:"social"`
}

// SocialConfig is the hot-reloadable business section. Reload plumbing is
// external; whoever gets the new properties calls Store.Replace.
type SocialConfig struct {
	FriendRequest FriendRequestConfig `json:"friend_request" yaml:"friend_request"`
	Relationship  RelationshipConfig  `json:"relationship" yaml:"relationship"`
	AutoBlock     AutoBlockConfig     `json:"auto_block" yaml:"auto_block"`
}

type FriendRequestConfig struct {
	// MaxContentLength <= 0 means unbounded.
	MaxContentLength int `json:"max_content_length" yaml:"max_content_length"`
	// MaxResponseReasonLength <= 0 means unbounded.
	MaxResponseReasonLength                         int    `json:"max_response_reason_length" yaml:"max_response_reason_length"`
	AllowSendRequestAfterDeclinedOrIgnoredOrExpired bool   `json:"allow_send_request_after_declined_or_ignored_or_expired" yaml:"allow_send_request_after_declined_or_ignored_or_expired"`
	AllowRecallPendingFriendRequestBySender         bool   `json:"allow_recall_pending_friend_request_by_sender" yaml:"allow_recall_pending_friend_request_by_sender"`
	DeleteExpiredRequestsWhenCronTriggered          bool   `json:"delete_expired_requests_when_cron_triggered" yaml:"delete_expired_requests_when_cron_triggered"`
	ExpiredRequestsCleanupCron                      string `json:"expired_requests_cleanup_cron" yaml:"expired_requests_cleanup_cron"`
	// ExpireAfterSeconds <= 0 disables the expiry projection.
	ExpireAfterSeconds int `json:"expire_after_seconds" yaml:"expire_after_seconds"`
}

type RelationshipConfig struct {
	// DeleteRelationshipWhenRemovedFromLastGroup decides what happens when a
	// related user is removed from their last non-default group: false moves
	// them to the default group, true deletes the one-sided relationship.
	DeleteRelationshipWhenRemovedFromLastGroup bool `json:"delete_relationship_when_removed_from_last_group" yaml:"delete_relationship_when_removed_from_last_group"`
}

type AutoBlockConfig struct {
	Enabled           bool         `json:"enabled" yaml:"enabled"`
	BlockTriggerTimes int          `json:"block_trigger_times" yaml:"block_trigger_times"`
	BlockLevels       []BlockLevel `json:"block_levels" yaml:"block_levels"`
}

type BlockLevel struct {
	BlockDurationSeconds               int64 `json:"block_duration_seconds" yaml:"block_duration_seconds"`
	GoNextLevelTriggerTimes            int   `json:"go_next_level_trigger_times" yaml:"go_next_level_trigger_times"`
	ReduceOneTriggerTimeIntervalMillis int   `json:"reduce_one_trigger_time_interval_millis" yaml:"reduce_one_trigger_time_interval_millis"`
}

func ParseConfig(file string) *Config {
	content, err := os.ReadFile(file)
	if err != nil {
		panic(err)
	}
	cfg := &Config{}
	err = yaml.Unmarshal(content, cfg)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Store holds the process-wide SocialConfig snapshot. Readers always see a
// complete config via a single atomic load; Replace swaps the whole snapshot.
type Store struct {
	v atomic.Pointer[SocialConfig]
}

func NewStore(cfg SocialConfig) *Store {
	s := &Store{}
	s.v.Store(&cfg)
	return s
}

func (s *Store) Load() *SocialConfig {
	return s.v.Load()
}

func (s *Store) Replace(cfg SocialConfig) {
	s.v.Store(&cfg)
}
