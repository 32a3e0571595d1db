package api

import (
	"errors"

	helper "github.com/reportyao/luckymart-tj-sub011/internal/common/helper"
	"github.com/reportyao/luckymart-tj-sub011/internal/common/response"
	"github.com/reportyao/luckymart-tj-sub011/internal/service"

	beego "github.com/beego/beego/v2/server/web"

	mysqlerr "github.com/go-sql-driver/mysql"
)

var newParticipateService = service.NewParticipateService

type ParticipateController struct{ beego.Controller }

/*
幂等键：客户端生成并随请求传入，用于在网络重试/超时重发/服务端重试时保证"同一次参与只生效一次"。
使用约定：
- 对于"同一次参与"的所有重试，请传相同的 idempotency_key；
- 业务语义不同（份数/期次/方式不同）的请求必须使用不同的 key；
- 建议生成方式：UUID。
服务端幂等保证（多层防护）：
1) Redis 进行中锁（约45秒）：并发重复请求直接返回 202，并携带 Retry-After: 1；
2) MySQL 唯一键：在事务内先插入 idempotency_keys(idempotency_key)，若已存在则返回首次请求的结果；
3) 结果缓存：首次成功结果会写入 Redis（短期缓存），后续重复可直接读缓存快速返回。
错误语义：
- 并发重复（正在处理）：HTTP 202 + Retry-After: 1
- 历史重复（已处理完）：返回首次的参与结果（含号段），不算错误。
*/

// Participate 处理参与接口：POST /api/lottery/participate
func (c *ParticipateController) Participate() {
	traceID := helper.GetTraceID(c.Ctx)

	// 1) 解析入参与基本校验
	// 这里必须要对业务参数严格校验，后续service不再重复校验
	pp, ok, msg := helper.ParseAndValidateParticipate(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	// 用户ID由认证中间件注入
	userID := int64(0)
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		if uid, ok := v.(int64); ok {
			userID = uid
		}
	}
	if userID == 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	svc := newParticipateService()
	out, err := svc.Participate(c.Ctx.Request.Context(), service.ParticipateInput{
		RoundID:        pp.RoundId,
		UserID:         userID,
		SharesCount:    pp.SharesCount,
		Kind:           pp.KindCode,
		IdempotencyKey: pp.IdempotencyKey,
		TraceID:        traceID,
	})
	if err != nil {
		// MySQL 唯一键冲突
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
			return
		}
		// 重复请求进行中
		if errors.Is(err, service.ErrDuplicateInFlight) {
			response.Accepted(&c.Controller, "重复请求进行中，请稍后重试", traceID)
			return
		}
		// 期次不可参与
		if errors.Is(err, service.ErrRoundNotActive) {
			response.Conflict(&c.Controller, response.CodeRoundNotActive, traceID)
			return
		}
		// 剩余份数不足
		if errors.Is(err, service.ErrInsufficientShares) {
			response.Conflict(&c.Controller, response.CodeInsufficientShares, traceID)
			return
		}
		// 占号竞争失败，客户端可重试一次
		if errors.Is(err, service.ErrRoundChangedRetry) {
			response.Conflict(&c.Controller, response.CodeRoundChangedRetry, traceID)
			return
		}
		// 余额不足
		if errors.Is(err, service.ErrInsufficientBalance) {
			response.Error(&c.Controller, 402, response.CodeInsufficientBalance, traceID)
			return
		}
		// 免费额度不足
		if errors.Is(err, service.ErrFreeQuotaExceeded) {
			response.Conflict(&c.Controller, response.CodeFreeQuotaExceeded, traceID)
			return
		}
		// 用户被禁用
		if errors.Is(err, service.ErrUserDisabled) {
			response.Error(&c.Controller, 403, response.CodeForbidden, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, out, traceID)
}
