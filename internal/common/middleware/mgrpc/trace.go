package mgrpc

import (
	"context"
	"net"
	"strings"

	"social-im/internal/pkg/mtrace"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

var _ propagation.TextMapCarrier = (*metadataCarrier)(nil)

type metadataCarrier struct {
	metadata *metadata.MD
}

func (m *metadataCarrier) Get(key string) string {
	v := m.metadata.Get(key)
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func (m *metadataCarrier) Set(key string, value string) {
	m.metadata.Set(key, value)
}

func (m *metadataCarrier) Keys() []string {
	out := []string{}
	for key := range *m.metadata {
		out = append(out, key)
	}
	return out
}

func UnaryServerTrace() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			md = metadata.MD{}
		}
		tmp := otel.GetTextMapPropagator()
		ctx = tmp.Extract(ctx, &metadataCarrier{&md})

		name := strings.TrimLeft(info.FullMethod, "/")
		parts := strings.SplitN(name, "/", 2)
		var attrs []attribute.KeyValue
		if len(parts) == 2 {
			if service := parts[0]; service != "" {
				attrs = append(attrs, semconv.RPCServiceKey.String(service))
			}
			if method := parts[1]; method != "" {
				attrs = append(attrs, semconv.RPCMethodKey.String(method))
			}
		}
		p, ok := peer.FromContext(ctx)
		if ok && p != nil {
			addr := p.Addr.String()
			host, port, err := net.SplitHostPort(addr)
			if err == nil {
				if host == "" {
					host = "127.0.0.1"
				}
				attrs = append(attrs, semconv.NetPeerNameKey.String(host))
				attrs = append(attrs, semconv.NetPeerPortKey.String(port))
			}
		}

		ctx, span := mtrace.StartSpan(ctx, name,
			trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(attrs...))
		defer mtrace.EndSpan(span)

		resp, err = handler(ctx, req)
		if span == nil {
			return resp, err
		}
		if err != nil {
			s, ok := status.FromError(err)
			if ok {
				span.SetStatus(codes.Error, s.Message())
			} else {
				span.SetStatus(codes.Error, err.Error())
			}
			return nil, err
		}
		span.SetAttributes(mtrace.GRPCStatusCodeKey.Int64(int64(codes.Ok)))
		return resp, nil
	}
}
