package api

import (
	"errors"

	helper "github.com/reportyao/luckymart-tj-sub011/internal/common/helper"
	"github.com/reportyao/luckymart-tj-sub011/internal/common/response"
	"github.com/reportyao/luckymart-tj-sub011/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newRoundService = service.NewRoundService

// RoundController 期次查询与管理接口
// 查询走 Redis 快照缓存 + DB 回源；管理接口由 AdminAuthFilter 保护
type RoundController struct{ beego.Controller }

// GetRound 查询期次快照：GET /api/round/:round_id
func (c *RoundController) GetRound() {
	traceID := helper.GetTraceID(c.Ctx)

	roundID := c.Ctx.Input.Param(":round_id")
	if roundID == "" {
		response.BadRequest(&c.Controller, "round_id is required", traceID)
		return
	}

	info, err := newRoundService().GetRoundInfo(c.Ctx.Request.Context(), roundID)
	if err != nil {
		if errors.Is(err, service.ErrRoundNotFound) {
			response.NotFound(&c.Controller, "round not found", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, info, traceID)
}

// VerifyRound 开奖结果验证：GET /api/round/:round_id/verify
// 用落库数据重算中奖号码并与已公布结果比对，任何人可调用
func (c *RoundController) VerifyRound() {
	traceID := helper.GetTraceID(c.Ctx)

	roundID := c.Ctx.Input.Param(":round_id")
	if roundID == "" {
		response.BadRequest(&c.Controller, "round_id is required", traceID)
		return
	}

	valid, proof, err := service.NewDrawService().VerifyRound(c.Ctx.Request.Context(), roundID)
	if err != nil {
		if errors.Is(err, service.ErrRoundNotFound) {
			response.NotFound(&c.Controller, "round not found", traceID)
			return
		}
		if errors.Is(err, service.ErrInvalidStateDraw) {
			response.Conflict(&c.Controller, response.CodeInvalidStateDraw, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]any{
		"round_id": roundID,
		"valid":    valid,
		"proof":    proof,
	}, traceID)
}

// CreateRound 开新期次（管理接口）：POST /api/admin/round
func (c *RoundController) CreateRound() {
	traceID := helper.GetTraceID(c.Ctx)

	cp, ok, msg := helper.ParseAndValidateCreateRound(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	round, err := newRoundService().CreateRound(c.Ctx.Request.Context(),
		cp.ProductId, cp.RoundNumber, cp.TotalShares, cp.PricePerShare, traceID)
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]any{
		"round_id":        round.RoundID,
		"product_id":      round.ProductID,
		"round_number":    round.RoundNumber,
		"total_shares":    round.TotalShares,
		"price_per_share": round.PricePerShare,
	}, traceID)
}

// CancelRound 取消期次并退款（管理接口）：POST /api/admin/round/:round_id/cancel
func (c *RoundController) CancelRound() {
	traceID := helper.GetTraceID(c.Ctx)

	roundID := c.Ctx.Input.Param(":round_id")
	if roundID == "" {
		response.BadRequest(&c.Controller, "round_id is required", traceID)
		return
	}
	operator := c.Ctx.Input.Query("operator")

	err := newRoundService().CancelRound(c.Ctx.Request.Context(), roundID, operator, traceID)
	if err != nil {
		if errors.Is(err, service.ErrRoundNotFound) {
			response.NotFound(&c.Controller, "round not found", traceID)
			return
		}
		if errors.Is(err, service.ErrRoundNotCancellable) {
			response.Conflict(&c.Controller, response.CodeRoundChangedRetry, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]any{"round_id": roundID, "cancelled": true}, traceID)
}
