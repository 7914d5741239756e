package etcd

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"social-im/internal/pkg/log"

	"github.com/zeromicro/go-zero/core/threading"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

type Config struct {
	Addr        string `json:"addr" yaml:"addr"`
	Key         string `json:"key" yaml:"key"`
	ElectionKey string `json:"election_key" yaml:"election_key"`
}

type Client struct {
	cfg *Config
	*clientv3.Client
	leaseID  map[string]clientv3.LeaseID
	isLeader atomic.Bool
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{cfg.Addr},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		panic(err)
	}
	return &Client{
		Client:  cli,
		cfg:     &cfg,
		leaseID: make(map[string]clientv3.LeaseID),
	}
}

func (c *Client) Register(name string, addr string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(addr) == "" {
		panic("etcd target name or addr empty")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	resp, err := c.Grant(ctx, 60)
	cancel()
	if err != nil {
		return err
	}
	leaseId := resp.ID
	ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
	_, err = c.Put(ctx, name, addr, clientv3.WithLease(leaseId))
	cancel()
	if err != nil {
		return err
	}
	r, err := c.KeepAlive(context.Background(), leaseId)
	if err != nil {
		return err
	}
	c.leaseID[name] = leaseId
	threading.GoSafe(func() {
		for {
			<-r
		}
	})
	return nil
}

func (c *Client) UnRegister(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	c.Delete(ctx, name)
	cancel()

	ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
	c.Revoke(ctx, c.leaseID[name])
	delete(c.leaseID, name)
	cancel()
}

// Elect campaigns for cluster leadership in the background. Leadership only
// gates housekeeping (cron sweeps); losing it silently is fine, the campaign
// restarts on session loss.
func (c *Client) Elect(id string) {
	key := c.cfg.ElectionKey
	if strings.TrimSpace(key) == "" {
		key = "/social-im/leader"
	}
	threading.GoSafe(func() {
		for {
			session, err := concurrency.NewSession(c.Client, concurrency.WithTTL(15))
			if err != nil {
				log.Errorf("create election session: %v", err)
				time.Sleep(3 * time.Second)
				continue
			}
			election := concurrency.NewElection(session, key)
			if err = election.Campaign(context.Background(), id); err != nil {
				log.Errorf("campaign for leadership: %v", err)
				session.Close()
				time.Sleep(3 * time.Second)
				continue
			}
			c.isLeader.Store(true)
			<-session.Done()
			c.isLeader.Store(false)
		}
	})
}

func (c *Client) IsLeader() bool {
	return c.isLeader.Load()
}
