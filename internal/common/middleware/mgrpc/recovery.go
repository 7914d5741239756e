package mgrpc

import (
	"context"
	"runtime/debug"

	"social-im/internal/pkg/log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func UnaryServerRecovery() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("panic: %v, stack: %v", r, string(debug.Stack()))
				err = status.Error(codes.Internal, "panic")
			}
		}()
		return handler(ctx, req)
	}
}
