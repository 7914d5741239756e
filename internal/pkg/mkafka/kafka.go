package mkafka

import (
	"context"
	"time"

	"social-im/internal/pkg/log"

	"github.com/segmentio/kafka-go"
	"github.com/zeromicro/go-zero/core/threading"
)

const (
	FriendRequestNotifyTopic = "friend-request-notify"
)

type MsgType int

const (
	FriendRequestCreatedMsg MsgType = iota + 1
	FriendRequestHandledMsg
	FriendRequestRecalledMsg
)

type WriterOption func(opt *kafka.Writer)

type Writer struct {
	*kafka.Writer
	req chan kafka.Message
}

type Config struct {
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
}

func NewProducer(c Config, opts ...WriterOption) *Writer {
	if len(c.Brokers) == 0 {
		panic("brokers empty")
	}
	kw := &kafka.Writer{
		BatchTimeout: time.Millisecond * 10,
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     &kafka.RoundRobin{},
		Compression:  kafka.Lz4,
		RequiredAcks: kafka.RequireOne,
		Topic:        c.Topic,
	}
	for _, opt := range opts {
		opt(kw)
	}
	w := &Writer{
		Writer: kw,
		req:    make(chan kafka.Message, 1000),
	}
	threading.GoSafe(func() {
		for item := range w.req {
			err := w.WriteMessages(context.Background(), item)
			if err != nil {
				log.Errorf("write kafka message: %v", err)
			}
		}
	})
	return w
}

func (w *Writer) Send(msg ...kafka.Message) {
	for _, item := range msg {
		w.req <- item
	}
}
