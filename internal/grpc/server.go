/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package grpc exposes the standard gRPC health service for the supervisor.
// grpc 包为守护服务提供标准 gRPC 健康检查服务。
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/basoka/checkerx/internal/process"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Default configuration values for gRPC server
// gRPC 服务器的默认配置值
const (
	// DefaultAddr is the default listen address.
	// DefaultAddr 是默认监听地址。
	DefaultAddr = ":9000"

	// DefaultMaxRecvMsgSize is the default maximum receive message size (4MB).
	// DefaultMaxRecvMsgSize 是默认的最大接收消息大小（4MB）。
	DefaultMaxRecvMsgSize = 4 * 1024 * 1024

	// DefaultMaxSendMsgSize is the default maximum send message size (4MB).
	// DefaultMaxSendMsgSize 是默认的最大发送消息大小（4MB）。
	DefaultMaxSendMsgSize = 4 * 1024 * 1024

	// WorkerService is the health service name mirroring worker liveness.
	// WorkerService 是反映工作进程存活状态的健康服务名。
	WorkerService = "checkerx.worker"
)

// Errors for gRPC server operations
// gRPC 服务器操作的错误定义
var (
	// ErrServerAlreadyRunning indicates the server is already running.
	// ErrServerAlreadyRunning 表示服务器已在运行。
	ErrServerAlreadyRunning = errors.New("grpc: server is already running")
)

// ServerConfig holds configuration for the gRPC server.
// ServerConfig 保存 gRPC 服务器的配置。
type ServerConfig struct {
	// Addr is the listen address.
	// Addr 是监听地址。
	Addr string

	MaxRecvMsgSize int
	MaxSendMsgSize int
}

// Server serves grpc.health.v1.Health.
// Service "" is SERVING while the supervisor runs; WorkerService follows the worker.
// Server 提供 grpc.health.v1.Health；"" 在守护服务运行期间为 SERVING，WorkerService 跟随工作进程状态。
type Server struct {
	config     *ServerConfig
	grpcServer *grpc.Server
	health     *health.Server
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewServer creates a new gRPC server instance.
// NewServer 创建一个新的 gRPC 服务器实例。
func NewServer(config *ServerConfig, logger *zap.Logger) *Server {
	if config == nil {
		config = &ServerConfig{}
	}

	// Set default values
	// 设置默认值
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.MaxRecvMsgSize <= 0 {
		config.MaxRecvMsgSize = DefaultMaxRecvMsgSize
	}
	if config.MaxSendMsgSize <= 0 {
		config.MaxSendMsgSize = DefaultMaxSendMsgSize
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config: config,
		health: health.NewServer(),
		logger: logger,
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(WorkerService, healthpb.HealthCheckResponse_NOT_SERVING)

	s.grpcServer = grpc.NewServer(s.buildServerOptions()...)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// ListenAndServe listens on the configured address and blocks until Stop
// ListenAndServe 监听配置的地址并阻塞直到 Stop
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener and blocks until Stop
// Serve 在给定监听器上提供服务并阻塞直到 Stop
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("gRPC server starting", zap.String("addr", listener.Addr().String()))
	if err := s.grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops gracefully.
// Stop 将所有服务标记为 NOT_SERVING 并优雅停止。
func (s *Server) Stop() {
	s.logger.Info("Stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("gRPC server stopped")
}

// IsRunning returns whether the server is running.
// IsRunning 返回服务器是否正在运行。
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetWorkerServing updates the worker health status
// SetWorkerServing 更新工作进程的健康状态
func (s *Server) SetWorkerServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(WorkerService, st)
}

// HandleEvent mirrors supervisor lifecycle events into the health status
// HandleEvent 将守护者生命周期事件同步到健康状态
func (s *Server) HandleEvent(ev process.Event) {
	switch ev.Type {
	case process.EventStarted:
		s.SetWorkerServing(true)
	case process.EventStopped, process.EventExited:
		s.SetWorkerServing(false)
	}
}

// buildServerOptions builds gRPC server options based on configuration.
// buildServerOptions 根据配置构建 gRPC 服务器选项。
func (s *Server) buildServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(s.config.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(s.config.MaxSendMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 15 * time.Minute,
			Time:              5 * time.Minute,
			Timeout:           20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			s.loggingUnaryInterceptor,
			s.recoveryUnaryInterceptor,
		),
		grpc.ChainStreamInterceptor(
			s.recoveryStreamInterceptor,
		),
	}
}

// loggingUnaryInterceptor logs unary RPC calls.
// loggingUnaryInterceptor 记录一元 RPC 调用。
func (s *Server) loggingUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	peerAddr := "unknown"
	if p, ok := peer.FromContext(ctx); ok {
		peerAddr = p.Addr.String()
	}

	resp, err := handler(ctx, req)

	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.String("peer", peerAddr),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		s.logger.Warn("gRPC unary call failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Debug("gRPC unary call completed", fields...)
	}
	return resp, err
}

// recoveryUnaryInterceptor recovers from panics in unary handlers.
// recoveryUnaryInterceptor 从一元处理器的 panic 中恢复。
func (s *Server) recoveryUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("gRPC unary handler panic",
				zap.String("method", info.FullMethod),
				zap.Any("panic", r),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(ctx, req)
}

// recoveryStreamInterceptor recovers from panics in stream handlers (Health/Watch).
// recoveryStreamInterceptor 从流式处理器的 panic 中恢复。
func (s *Server) recoveryStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("gRPC stream handler panic",
				zap.String("method", info.FullMethod),
				zap.Any("panic", r),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()

	return handler(srv, ss)
}
