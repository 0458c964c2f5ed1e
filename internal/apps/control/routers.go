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

package control

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册控制接口路由
// RegisterRoutes registers the control API routes
func RegisterRoutes(router gin.IRoutes, handler *Handler) {
	// 进程控制
	router.POST("/start", handler.Start)
	router.POST("/stop", handler.Stop)
	router.GET("/is_running", handler.IsRunning)

	// 统计与日志
	router.GET("/status", handler.GetStatus)
	router.GET("/log", handler.GetLog)

	router.GET("/health", handler.Health)
}

// RegisterFallbacks 注册 404/405 JSON 响应
// RegisterFallbacks installs the JSON 404 and 405 handlers
func RegisterFallbacks(engine *gin.Engine) {
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(NotFound)
	engine.NoMethod(MethodNotAllowed)
}
