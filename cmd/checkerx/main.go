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

// Package main is the entry point for the checkerx supervisor.
// main 包是 checkerx 守护服务的入口点。
//
// checkerx owns one worker process and exposes an HTTP control API to
// start and stop it, report its artifacts and tail its progress log.
// checkerx 管理一个工作进程，并通过 HTTP 控制接口启动/停止它、汇报产出文件统计、查看进度日志。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/basoka/checkerx/internal/config"
	"github.com/basoka/checkerx/internal/logger"
	"github.com/basoka/checkerx/internal/router"
	"github.com/spf13/cobra"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configFile string
	addr       string
)

var rootCmd = &cobra.Command{
	Use:   "checkerx",
	Short: "checkerx - supervisor and control API for a single worker process",
	Long: `checkerx supervises one worker process.
checkerx 守护一个工作进程。

The HTTP control API can:
- Start and stop the worker, including its child processes / 启动和停止工作进程及其子进程
- Report counts and recent records from the artifact files / 汇报产出文件的数量与最近记录
- Return the tail of the progress log / 返回进度日志末尾`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control API / 运行控制接口",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration / 打印生效配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := cfg.ToYAML()
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "checkerx\n")
		fmt.Fprintf(out, "  Version:    %s\n", Version)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: $CHECKERX_CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "override server.addr")

	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w / 加载配置失败：%w", err, err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w / 无效配置：%w", err, err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	// SIGINT/SIGTERM 触发优雅关闭，工作进程随之停止
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	logger.InfoF(ctx, "[Main] checkerx %s starting, %s", Version, cfg)
	if err := router.Serve(ctx, cfg, Version); err != nil {
		logger.ErrorF(context.Background(), "[Main] serve failed: %v", err)
		return err
	}
	logger.InfoF(context.Background(), "[Main] checkerx stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
