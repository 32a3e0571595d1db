package model

import (
	"context"
	"time"

	"github.com/reportyao/luckymart-tj-sub011/common"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// Participation 对应 participations 表
// 号段为左闭右开前的连续区间：[start_number, start_number+shares_count-1]，1-based
// kind: 1=paid 付费 2=free 免费
// 记录不可变，仅 is_winner 由结算置位一次
type Participation struct {
	ID              int64   `db:"id"`               // 自增ID
	ParticipationID string  `db:"participation_id"` // 参与ID(uuid)
	RoundID         string  `db:"round_id"`         // 期次ID
	ProductID       string  `db:"product_id"`       // 商品ID
	UserID          int64   `db:"user_id"`          // 用户ID
	StartNumber     int64   `db:"start_number"`     // 号段起始(含)
	SharesCount     int64   `db:"shares_count"`     // 份数
	Kind            int8    `db:"kind"`             // 1=paid 2=free
	Cost            float64 `db:"cost"`             // 实际扣款金额(免费为0)
	IsWinner        int8    `db:"is_winner"`        // 是否中奖: 0/1
	TraceID         string  `db:"trace_id"`         // 链路追踪ID
	CreatedAt       int64   `db:"created_at"`       // 创建时间
}

// EndNumber 号段结束(含)
func (p *Participation) EndNumber() int64 {
	return p.StartNumber + p.SharesCount - 1
}

// Contains 判断号码是否落在本参与的号段内
func (p *Participation) Contains(number int64) bool {
	return number >= p.StartNumber && number <= p.EndNumber()
}

// AssignedNumbers 展开号段为号码列表（响应展示用）
func (p *Participation) AssignedNumbers() []int64 {
	numbers := make([]int64, 0, p.SharesCount)
	for n := p.StartNumber; n <= p.EndNumber(); n++ {
		numbers = append(numbers, n)
	}
	return numbers
}

// Insert 插入一条参与记录
func (p *Participation) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	p.CreatedAt = now

	sqlStr := `INSERT INTO participations (participation_id, round_id, product_id, user_id,
		start_number, shares_count, kind, cost, is_winner, trace_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	_, err := exec.ExecContext(ctx, sqlStr, p.ParticipationID, p.RoundID, p.ProductID, p.UserID,
		p.StartNumber, p.SharesCount, p.Kind, p.Cost, p.TraceID, p.CreatedAt)
	return err
}

// GetParticipation 按参与ID查询
func GetParticipation(ctx context.Context, exec sqlx.ExtContext, participationID string) (*Participation, error) {
	sqlStr := `SELECT id, participation_id, round_id, product_id, user_id, start_number, shares_count,
		kind, cost, is_winner, trace_id, created_at
		FROM participations WHERE participation_id = ? LIMIT 1`
	var p Participation
	if err := sqlx.GetContext(ctx, exec, &p, sqlStr, participationID); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByRoundOrdered 按创建顺序返回期次全部参与记录（开奖输入，顺序即哈希口径）
func ListByRoundOrdered(ctx context.Context, exec sqlx.ExtContext, roundID string) ([]Participation, error) {
	sqlStr := `SELECT id, participation_id, round_id, product_id, user_id, start_number, shares_count,
		kind, cost, is_winner, trace_id, created_at
		FROM participations WHERE round_id = ? ORDER BY id ASC`

	var list []Participation
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, roundID); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkWinner 置位中奖标记（is_winner=0 守卫保证只置位一次）
func MarkWinner(ctx context.Context, exec sqlx.ExtContext, participationID string) (bool, error) {
	sqlStr := "UPDATE participations SET is_winner = 1 WHERE participation_id = ? AND is_winner = 0"

	res, err := exec.ExecContext(ctx, sqlStr, participationID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountByUser 用户历史参与总数（首次参与触发邀请奖励判断用）
func CountByUser(ctx context.Context, db *sqlx.DB, userID int64) (int64, error) {
	return common.CountCtx(ctx, db, "participations", g.Ex{"user_id": userID})
}

// ListByUser 分页查询用户参与记录（走 goqu 列表查询）
func ListByUser(ctx context.Context, db *sqlx.DB, userID int64, offset, limit uint) ([]Participation, error) {
	var list []Participation
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  "participations",
		Fields: common.EnumFields(Participation{}),
		Ex:     []g.Expression{g.Ex{"user_id": userID}},
		Order:  []exp.OrderedExpression{g.I("id").Desc()},
		Offset: offset,
		Limit:  limit,
	})
	return list, err
}

// SumSharesByRound 期次参与份数合计（对账：应等于 sold_shares）
func SumSharesByRound(ctx context.Context, db *sqlx.DB, roundID string) (int64, error) {
	v, err := common.SumCtx(ctx, db, "participations", "shares_count", g.Ex{"round_id": roundID})
	return int64(v), err
}
