package api

import (
	"errors"

	helper "github.com/reportyao/luckymart-tj-sub011/internal/common/helper"
	"github.com/reportyao/luckymart-tj-sub011/internal/common/response"
	"github.com/reportyao/luckymart-tj-sub011/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newDrawService = service.NewDrawService

// DrawController 开奖管理接口（由 AdminAuthFilter 保护）
type DrawController struct{ beego.Controller }

// ForceDraw 管理员触发开奖：POST /api/admin/draw
// override=false：仅售罄期次可开；override=true：未售罄也可提前开奖
func (c *DrawController) ForceDraw() {
	traceID := helper.GetTraceID(c.Ctx)

	fp, ok, msg := helper.ParseAndValidateForceDraw(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	err := newDrawService().ForceDraw(c.Ctx.Request.Context(), fp.RoundId, fp.Override, fp.Operator, traceID)
	if err != nil {
		if errors.Is(err, service.ErrRoundNotFound) {
			response.NotFound(&c.Controller, "round not found", traceID)
			return
		}
		if errors.Is(err, service.ErrInvalidStateDraw) {
			response.Conflict(&c.Controller, response.CodeInvalidStateDraw, traceID)
			return
		}
		if errors.Is(err, service.ErrNoParticipations) {
			response.Conflict(&c.Controller, response.CodeBusinessError, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]any{"round_id": fp.RoundId, "drawn": true}, traceID)
}
