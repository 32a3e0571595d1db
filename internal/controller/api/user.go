package api

import (
	"database/sql"
	"strconv"

	chelper "github.com/reportyao/luckymart-tj-sub011/common/helper"
	helper "github.com/reportyao/luckymart-tj-sub011/internal/common/helper"
	"github.com/reportyao/luckymart-tj-sub011/internal/common/response"
	infmysql "github.com/reportyao/luckymart-tj-sub011/internal/infra/mysql"
	"github.com/reportyao/luckymart-tj-sub011/internal/model"

	beego "github.com/beego/beego/v2/server/web"
	decimal "github.com/shopspring/decimal"
)

// UserController 用户侧查询接口（需用户认证）
type UserController struct{ beego.Controller }

// currentUserID 从认证中间件注入的数据取用户ID，0 表示未认证
func (c *UserController) currentUserID() int64 {
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		if uid, ok := v.(int64); ok {
			return uid
		}
	}
	return 0
}

// GetBalance 查询余额与免费额度：GET /api/user/balance
func (c *UserController) GetBalance() {
	traceID := helper.GetTraceID(c.Ctx)

	userID := c.currentUserID()
	if userID == 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	user, err := model.GetUser(c.Ctx.Request.Context(), infmysql.SQLX(), userID)
	if err != nil {
		if err == sql.ErrNoRows {
			response.NotFound(&c.Controller, "user not found", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]any{
		"user_id":          user.UserID,
		"balance":          chelper.TrimDecimal(decimal.NewFromFloat(user.Balance)),
		"total_spent":      chelper.TrimDecimal(decimal.NewFromFloat(user.TotalSpent)),
		"free_daily_count": user.FreeDailyCount,
		"last_free_date":   user.LastFreeDate,
	}, traceID)
}

// ListParticipations 分页查询参与记录：GET /api/user/participations?page=1&page_size=20
func (c *UserController) ListParticipations() {
	traceID := helper.GetTraceID(c.Ctx)

	userID := c.currentUserID()
	if userID == 0 {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	page, _ := strconv.Atoi(c.Ctx.Input.Query("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Ctx.Input.Query("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx := c.Ctx.Request.Context()
	db := infmysql.SQLX()

	total, err := model.CountByUser(ctx, db, userID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	list, err := model.ListByUser(ctx, db, userID, uint((page-1)*pageSize), uint(pageSize))
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	items := make([]map[string]any, 0, len(list))
	for i := range list {
		p := list[i]
		kind := "paid"
		if p.Kind == 2 {
			kind = "free"
		}
		items = append(items, map[string]any{
			"participation_id": p.ParticipationID,
			"round_id":         p.RoundID,
			"product_id":       p.ProductID,
			"start_number":     p.StartNumber,
			"end_number":       p.EndNumber(),
			"shares_count":     p.SharesCount,
			"kind":             kind,
			"cost":             chelper.TrimDecimal(decimal.NewFromFloat(p.Cost)),
			"is_winner":        p.IsWinner == 1,
			"created_at":       p.CreatedAt,
		})
	}

	response.Success(&c.Controller, map[string]any{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"list":      items,
	}, traceID)
}
