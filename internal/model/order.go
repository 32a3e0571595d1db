package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// Order 对应 orders 表
// 奖品单金额为 0（夺宝的对价已在参与时逐份收取）
// order_type: 1=lottery_win 中奖奖品单
// status: 1=待发货 2=已发货 3=已完成 4=已取消
type Order struct {
	OrderNo     string  `db:"order_no"`     // 订单号(主键，LM前缀)
	UserID      int64   `db:"user_id"`      // 用户ID
	RoundID     string  `db:"round_id"`     // 期次ID
	ProductID   string  `db:"product_id"`   // 商品ID
	OrderType   int8    `db:"order_type"`   // 订单类型
	TotalAmount float64 `db:"total_amount"` // 订单金额(奖品单为0)
	Status      int8    `db:"status"`       // 订单状态
	Remark      string  `db:"remark"`       // 备注
	TraceID     string  `db:"trace_id"`     // 链路追踪ID
	CreatedAt   int64   `db:"created_at"`   // 创建时间
	UpdatedAt   int64   `db:"updated_at"`   // 更新时间
}

// 订单类型
const (
	OrderTypeLotteryWin int8 = 1
)

// 订单状态
const (
	OrderStatusPending   int8 = 1
	OrderStatusShipped   int8 = 2
	OrderStatusCompleted int8 = 3
	OrderStatusCancelled int8 = 4
)

// Insert 插入一条订单记录
func (o *Order) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	o.CreatedAt = now
	o.UpdatedAt = now

	sqlStr := `INSERT INTO orders (order_no, user_id, round_id, product_id, order_type,
		total_amount, status, remark, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := exec.ExecContext(ctx, sqlStr, o.OrderNo, o.UserID, o.RoundID, o.ProductID, o.OrderType,
		o.TotalAmount, o.Status, o.Remark, o.TraceID, o.CreatedAt, o.UpdatedAt)
	return err
}

// GetPrizeOrderByRound 查询期次的中奖奖品单（结算幂等返回用）
func GetPrizeOrderByRound(ctx context.Context, exec sqlx.ExtContext, roundID string) (*Order, error) {
	sqlStr := `SELECT order_no, user_id, round_id, product_id, order_type, total_amount,
		status, remark, trace_id, created_at, updated_at
		FROM orders WHERE round_id = ? AND order_type = ? LIMIT 1`

	var o Order
	err := sqlx.GetContext(ctx, exec, &o, sqlStr, roundID, OrderTypeLotteryWin)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, err
	}
	return &o, nil
}
