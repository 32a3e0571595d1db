package routers

import (
	"github.com/reportyao/luckymart-tj-sub011/internal/config"
	"github.com/reportyao/luckymart-tj-sub011/internal/controller/api"
	"github.com/reportyao/luckymart-tj-sub011/internal/metrics"
	"github.com/reportyao/luckymart-tj-sub011/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// init 注册HTTP路由与全局过滤器
func init() {
	cfg := config.GetCurrent()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// ========== 业务 API（需要用户认证） ==========

	// 参与接口：用户认证 + 限流（认证后按用户维度限流）
	beego.InsertFilter("/api/lottery/participate", beego.BeforeExec, middleware.UserAuthFilter)
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/lottery/participate", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/lottery/participate", &api.ParticipateController{}, "post:Participate")

	// 用户查询接口：用户认证（用户只能查询自己的数据）
	beego.InsertFilter("/api/user/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/user/balance", &api.UserController{}, "get:GetBalance")
	beego.Router("/api/user/participations", &api.UserController{}, "get:ListParticipations")

	// ========== 公开查询 API ==========

	// 期次快照与开奖验证：任何人可查（验证即公信力）
	beego.Router("/api/round/:round_id", &api.RoundController{}, "get:GetRound")
	beego.Router("/api/round/:round_id/verify", &api.RoundController{}, "get:VerifyRound")

	// ========== 管理 API（需要管理员认证） ==========

	if cfg != nil && cfg.Auth.Admin.Enabled {
		beego.InsertFilter("/api/admin/*", beego.BeforeExec, middleware.AdminAuthFilter)
	}
	beego.Router("/api/admin/round", &api.RoundController{}, "post:CreateRound")
	beego.Router("/api/admin/round/:round_id/cancel", &api.RoundController{}, "post:CancelRound")
	beego.Router("/api/admin/draw/force", &api.DrawController{}, "post:ForceDraw")
}
