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

// Package router 提供 HTTP 路由配置
// Package router provides HTTP routing configuration
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/basoka/checkerx/docs"
	"github.com/basoka/checkerx/internal/apps/control"
	"github.com/basoka/checkerx/internal/artifact"
	"github.com/basoka/checkerx/internal/config"
	grpcServer "github.com/basoka/checkerx/internal/grpc"
	"github.com/basoka/checkerx/internal/logger"
	"github.com/basoka/checkerx/internal/otel_trace"
	"github.com/basoka/checkerx/internal/process"
	"github.com/basoka/checkerx/internal/stats"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

// App bundles the components behind the control API
// App 汇集控制接口背后的组件
type App struct {
	Config     *config.Config
	Supervisor *process.Supervisor
	Monitor    *process.Monitor
	Aggregator *stats.Aggregator
	GRPC       *grpcServer.Server
	Engine     *gin.Engine
}

// New wires the supervisor, statistics and HTTP engine from cfg.
// Nothing is started.
// New 根据配置组装守护者、统计与 HTTP 引擎，不启动任何组件。
func New(cfg *config.Config, version string) *App {
	app := &App{Config: cfg}

	store := artifact.NewStore(cfg.Artifacts)
	app.Aggregator = stats.NewAggregator(store, cfg.Reporting.RecentLimit)
	app.Supervisor = process.NewSupervisor(cfg.Worker, cfg.Supervisor)
	app.Monitor = process.NewMonitor(app.Supervisor, cfg.Supervisor.MonitorInterval)

	if cfg.GRPC.Enabled {
		app.GRPC = grpcServer.NewServer(&grpcServer.ServerConfig{Addr: cfg.GRPC.Addr}, logger.L())
	}
	app.Supervisor.SetEventHandler(app.handleEvent)

	handler := control.NewHandler(app.Supervisor, app.Aggregator, &control.HandlerConfig{
		LogFile:         cfg.Reporting.LogFile,
		DefaultLogLines: cfg.Reporting.DefaultLogLines,
		MaxLogLines:     cfg.Reporting.MaxLogLines,
		Version:         version,
	})
	app.Engine = NewEngine(cfg, handler)
	return app
}

func (a *App) handleEvent(ev process.Event) {
	ctx := context.Background()
	switch ev.Type {
	case process.EventExited:
		logger.WarnF(ctx, "[Supervisor] worker pid=%d run=%s exited on its own, code=%d", ev.PID, ev.RunID, ev.ExitCode)
	default:
		logger.InfoF(ctx, "[Supervisor] worker pid=%d run=%s %s", ev.PID, ev.RunID, ev.Type)
	}
	if a.GRPC != nil {
		a.GRPC.HandleEvent(ev)
	}
}

// NewEngine builds the gin engine serving the control API
// NewEngine 构建提供控制接口的 gin 引擎
func NewEngine(cfg *config.Config, handler *control.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(control.Recovery))
	r.Use(otelgin.Middleware(cfg.Telemetry.ServiceName), loggerMiddleware())

	control.RegisterFallbacks(r)
	control.RegisterRoutes(r, handler)

	if cfg.IsDevelopment() {
		// Swagger
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return r
}

// Serve runs the control API until ctx is done, then stops the worker
// Serve 运行控制接口直到 ctx 结束，随后停止工作进程
func Serve(ctx context.Context, cfg *config.Config, version string) error {
	// Initialize OpenTelemetry tracing (based on config)
	// 初始化 OpenTelemetry 追踪（根据配置）
	otel_trace.Init(ctx, cfg.Telemetry)
	defer otel_trace.Shutdown(context.Background())

	// 运行模式
	// Set run mode
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	docs.SwaggerInfo.Version = version

	app := New(cfg, version)
	logger.InfoF(ctx, "[API] worker command: %s %s (dir=%q)", cfg.Worker.Command, cfg.Worker.Script, cfg.Worker.Dir)
	logger.InfoF(ctx, "[API] artifacts: success=%s failure=%s retry=%s",
		cfg.Artifacts.SuccessFile, cfg.Artifacts.FailureFile, cfg.Artifacts.RetryFile)
	logger.InfoF(ctx, "[API] progress log: %s", cfg.Reporting.LogFile)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	app.Monitor.Start(gctx)

	g.Go(func() error {
		logger.InfoF(ctx, "[API] HTTP 服务器启动于 %s / HTTP server starting on %s", cfg.Server.Addr, cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http on %s: %w", cfg.Server.Addr, err)
		}
		return nil
	})

	if app.GRPC != nil {
		g.Go(func() error {
			logger.InfoF(ctx, "[gRPC] health service starting on %s", cfg.GRPC.Addr)
			return app.GRPC.ListenAndServe()
		})
	} else {
		logger.InfoF(ctx, "[API] gRPC 服务器已禁用 / gRPC server is disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		logger.InfoF(ctx, "[API] shutting down")
		err := srv.Shutdown(shutdownCtx)
		if app.GRPC != nil {
			app.GRPC.Stop()
		}
		return err
	})

	serveErr := g.Wait()
	app.Monitor.Stop()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownBudget(cfg))
	defer cancel()
	if err := app.Supervisor.Shutdown(stopCtx); err != nil {
		logger.ErrorF(ctx, "[API] stop worker on exit: %v", err)
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}

// shutdownBudget covers a full escalation of the worker tree
func shutdownBudget(cfg *config.Config) time.Duration {
	s := cfg.Supervisor
	return s.DescendantGrace + s.RootGrace + s.ReapTimeout + time.Second
}
