package router

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/smartcargo-next/internal/authz"
	"github.com/smartcargo-next/internal/cache"
	"github.com/smartcargo-next/internal/config"
	adminhandlers "github.com/smartcargo-next/internal/http/handlers/admin"
	publichandlers "github.com/smartcargo-next/internal/http/handlers/public"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	loginRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:login"),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	health := func(c *gin.Context) {
		redisState := "disabled"
		if cache.Enabled() {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			redisState = "up"
			if err := cache.Ping(ctx); err != nil {
				redisState = "down"
				logger.Warnw("health_redis_ping_failed", "error", err)
			}
		}
		response.Success(c, gin.H{"status": "ok", "redis": redisState})
	}
	r.GET("/health", health)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/health", health)

		// 认证（无需登录）
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("username")), publicHandler.Login)
		}

		authorized := apiV1.Group("")
		authorized.Use(JWTAuthMiddleware(c.AuthService), RoleAuthzMiddleware(c.AuthzService))
		{
			authorized.GET("/auth/me", publicHandler.Me)

			// 货源
			authorized.GET("/cargo", publicHandler.ListCargoOffers)
			authorized.POST("/cargo", publicHandler.CreateCargoOffer)
			authorized.GET("/cargo/:id", publicHandler.GetCargoOffer)
			authorized.PUT("/cargo/:id", publicHandler.UpdateCargoOffer)
			authorized.DELETE("/cargo/:id", publicHandler.DeleteCargoOffer)
			authorized.GET("/cargo/:id/compatible-vehicles", publicHandler.CompatibleVehicles)

			// 车辆
			authorized.GET("/vehicles", publicHandler.ListVehicles)
			authorized.POST("/vehicles", publicHandler.CreateVehicle)
			authorized.GET("/vehicles/:id", publicHandler.GetVehicle)
			authorized.PUT("/vehicles/:id", publicHandler.UpdateVehicle)
			authorized.DELETE("/vehicles/:id", publicHandler.DeleteVehicle)

			// 撮合
			authorized.POST("/matching/assign", publicHandler.AssignCargo)

			// 运单
			authorized.GET("/shipments", publicHandler.ListShipments)
			authorized.GET("/shipments/:id", publicHandler.GetShipment)
			authorized.PUT("/shipments/:id", publicHandler.UpdateShipment)
			authorized.DELETE("/shipments/:id", publicHandler.DeleteShipment)
			authorized.GET("/shipments/:id/realtime", publicHandler.GetShipmentRealtime)
			authorized.POST("/shipments/:id/reopen", publicHandler.ReopenShipment)

			// 遥测
			authorized.POST("/iot/readings", publicHandler.RecordReading)
			authorized.POST("/iot/readings/batch", publicHandler.RecordBatch)
			authorized.GET("/iot/readings/:shipment_id", publicHandler.ListReadings)
			authorized.GET("/iot/readings/:shipment_id/latest", publicHandler.LatestReadings)
			authorized.POST("/iot/simulate/:shipment_id", publicHandler.SimulateReadings)

			// 告警
			authorized.GET("/alerts", publicHandler.ListAlerts)
			authorized.POST("/alerts", publicHandler.CreateAlert)
			authorized.GET("/alerts/:id", publicHandler.GetAlert)
			authorized.DELETE("/alerts/:id", publicHandler.DeleteAlert)
			authorized.PUT("/alerts/:id/read", publicHandler.MarkAlertRead)

			// 管理端
			authorized.GET("/admin/users", adminHandler.ListUsers)
			authorized.PUT("/admin/users/:id/status", adminHandler.UpdateUserStatus)
			authorized.DELETE("/admin/users/:id", adminHandler.DeleteUser)
			authorized.GET("/admin/audit-events", adminHandler.ListAuditEvents)
			authorized.GET("/admin/roles", adminHandler.ListRoles)
			authorized.POST("/admin/roles/:role/policies", adminHandler.GrantRolePolicy)
			authorized.DELETE("/admin/roles/:role/policies", adminHandler.RevokeRolePolicy)
		}
	}

	if strings.EqualFold(cfg.Server.Mode, "debug") {
		for _, item := range buildPermissionCatalog(r) {
			logger.Debugw("router_permission", "module", item.Module, "permission", item.Permission)
		}
	}

	return r
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildPermissionCatalog 列出需要角色授权的路由（method:object）
func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/") || isAnonymousRoute(item.Path) {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func isAnonymousRoute(path string) bool {
	switch path {
	case "/api/v1/health", "/api/v1/auth/register", "/api/v1/auth/login":
		return true
	}
	return false
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if segments[0] == "admin" && len(segments) > 1 {
		return segments[1]
	}
	return segments[0]
}
