package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-im/internal/common/jwt"
	"social-im/internal/common/middleware/mgrpc"
	"social-im/internal/common/middleware/mhttp"
	"social-im/internal/pkg/db"
	"social-im/internal/pkg/etcd"
	"social-im/internal/pkg/log"
	"social-im/internal/pkg/mkafka"
	"social-im/internal/pkg/mprometheus"
	"social-im/internal/pkg/mtrace"
	"social-im/internal/pkg/redis"
	"social-im/internal/pkg/snowflake"
	"social-im/internal/social/config"
	"social-im/internal/social/logic"
	"social-im/internal/social/server"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

var cfg = flag.String("c", "./config.yaml", "")

func main() {
	flag.Parse()

	c := config.ParseConfig(*cfg)

	log.InitLogger(c.Log)
	defer log.Close()
	jwt.Init(c.JWT)
	mtrace.InitTelemetry(c.Trace)
	snowflake.InitSnowflake(c.Server.NodeID)

	cli := etcd.NewClient(c.Server.Etcd)
	if cli != nil {
		if err := cli.Register(c.Server.Etcd.Key, c.Server.Addr); err != nil {
			panic(err)
		}
		defer cli.Close()
		defer cli.UnRegister(c.Server.Etcd.Key)
		cli.Elect(c.Server.Addr)
	}

	rdb := redis.NewRedis(c.Redis)
	defer rdb.Close()
	database := db.NewDB(c.Mysql)
	defer database.Close()
	kafkaWriter := mkafka.NewProducer(c.Kafka)
	defer kafkaWriter.Close()

	if c.Prometheus.Enable {
		mprometheus.GormPrometheus(&c.Prometheus, database.DB, "social")
		prometheus.MustRegister(mprometheus.RedisPrometheus(&c.Prometheus, rdb, "social-im", "social"))
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			err := http.ListenAndServe(c.Prometheus.Listen, nil)
			if err != nil {
				panic(err)
			}
		}()
	}

	svc := server.NewServer(c, rdb, database, kafkaWriter, cli)
	defer svc.Stop()

	if c.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.RecoveryWithWriter(log.Output()))
	if c.Trace.Enable {
		engine.Use(mhttp.Trace())
	}
	api := engine.Group("/api")

	logic.NewFriendRequestApi(svc).RegisterRouter(api)
	logic.NewRelationshipGroupApi(svc).RegisterRouter(api)
	logic.NewRelationshipApi(svc).RegisterRouter(api)

	if c.Server.Addr == "" {
		c.Server.Addr = "0.0.0.0:8004"
	}
	httpSvc := http.Server{
		Addr:    c.Server.Addr,
		Handler: engine,
	}

	done := make(chan struct{})
	signals := make(chan os.Signal, 1)

	go func() {
		httpSvc.ListenAndServe()
		done <- struct{}{}
	}()

	var grpcSvc *grpc.Server
	if c.Server.GrpcAddr != "" {
		grpcSvc = grpc.NewServer(
			grpc.KeepaliveParams(
				keepalive.ServerParameters{
					MaxConnectionIdle: 5 * time.Minute,
					Time:              10 * time.Second,
					Timeout:           2 * time.Second,
				}),
			grpc.ChainUnaryInterceptor(mgrpc.UnaryServerRecovery(), mgrpc.UnaryServerTrace()),
		)
		healthpb.RegisterHealthServer(grpcSvc, health.NewServer())
		listen, err := net.Listen("tcp", c.Server.GrpcAddr)
		if err != nil {
			panic(err)
		}
		go func() {
			grpcSvc.Serve(listen)
		}()
		log.Infof("social grpc health server listening on %s", c.Server.GrpcAddr)
	}

	log.Infof("social server listening on %s", c.Server.Addr)

	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-signals:
	case <-done:
	}

	log.Infof("social server shutdown.")

	httpSvc.Shutdown(context.TODO())
	if grpcSvc != nil {
		grpcSvc.Stop()
	}
}
