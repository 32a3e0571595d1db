package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// LotteryRound 对应 lottery_rounds 表
// 说明：时间为13位毫秒时间戳；状态采用数值枚举（见 internal/state）
// status: 1=active 售卖中 2=full 已售罄 3=drawing 开奖中 4=completed 已开奖 5=cancelled 已取消
// 期次只改状态不删除；sold_shares 只增不减，由条件 UPDATE 保证不超卖
type LotteryRound struct {
	ID                   int64   `db:"id"`                     // 自增ID（内部使用）
	RoundID              string  `db:"round_id"`               // 期次ID(uuid，业务主键)
	ProductID            string  `db:"product_id"`             // 商品ID
	RoundNumber          int64   `db:"round_number"`           // 期号（同商品递增）
	TotalShares          int64   `db:"total_shares"`           // 总份数
	SoldShares           int64   `db:"sold_shares"`            // 已售份数
	PricePerShare        float64 `db:"price_per_share"`        // 每份单价(TJS)
	Participants         int64   `db:"participants"`           // 参与记录数
	Status               int8    `db:"status"`                 // 状态
	WinningNumber        int64   `db:"winning_number"`         // 中奖号码(1-based，0=未开奖)
	WinnerParticipationID string `db:"winner_participation_id"` // 中奖参与ID
	WinnerUserID         int64   `db:"winner_user_id"`         // 中奖用户ID
	DrawTime             int64   `db:"draw_time"`              // 开奖时间(毫秒，0=未开奖)
	DrawProof            string  `db:"draw_proof"`             // 开奖证据(JSON，可独立复核)
	TraceID              string  `db:"trace_id"`               // 链路追踪ID
	CreatedAt            int64   `db:"created_at"`             // 创建时间
	UpdatedAt            int64   `db:"updated_at"`             // 更新时间
}

const roundFields = `id, round_id, product_id, round_number, total_shares, sold_shares,
	price_per_share, participants, status, winning_number, winner_participation_id,
	winner_user_id, draw_time, draw_proof, trace_id, created_at, updated_at`

// Insert 插入新期次（status=1 active）
func (r *LotteryRound) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	r.CreatedAt = now
	r.UpdatedAt = now

	sqlStr := `INSERT INTO lottery_rounds (round_id, product_id, round_number, total_shares, sold_shares,
		price_per_share, participants, status, winning_number, winner_participation_id, winner_user_id,
		draw_time, draw_proof, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, 0, 1, 0, '', 0, 0, '', ?, ?, ?)`

	_, err := exec.ExecContext(ctx, sqlStr,
		r.RoundID, r.ProductID, r.RoundNumber, r.TotalShares, r.PricePerShare, r.TraceID, r.CreatedAt, r.UpdatedAt)
	return err
}

// GetRound 获取期次（不加锁）
func GetRound(ctx context.Context, exec sqlx.ExtContext, roundID string) (*LotteryRound, error) {
	sqlStr := `SELECT ` + roundFields + ` FROM lottery_rounds WHERE round_id = ? LIMIT 1`
	var round LotteryRound
	if err := sqlx.GetContext(ctx, exec, &round, sqlStr, roundID); err != nil {
		return nil, err
	}
	return &round, nil
}

// GetRoundForUpdate 获取期次并加锁，必须在事务中调用
func GetRoundForUpdate(ctx context.Context, exec sqlx.ExtContext, roundID string) (*LotteryRound, error) {
	sqlStr := `SELECT ` + roundFields + ` FROM lottery_rounds WHERE round_id = ? FOR UPDATE`
	var round LotteryRound
	if err := sqlx.GetContext(ctx, exec, &round, sqlStr, roundID); err != nil {
		return nil, err
	}
	return &round, nil
}

// ReserveShares 原子占位：单条条件 UPDATE 完成扣减份数与售罄翻转，必须在事务中调用
// LAST_INSERT_ID(expr) 把自增后的 sold_shares 带回连接，随后在同一事务读回，
// 份数区间锚定在自增后的值上：start = newSold - n + 1
// 返回 (newSold, filled, reserved, err)；reserved=false 表示期次非 active 或剩余不足（0 行命中）
func ReserveShares(ctx context.Context, tx *sqlx.Tx, roundID string, n int64) (newSold int64, filled bool, reserved bool, err error) {
	now := time.Now().UnixMilli()

	// MySQL 赋值从左到右：status 的 IF 判断用的是已更新的 sold_shares
	sqlStr := `UPDATE lottery_rounds
		SET sold_shares = LAST_INSERT_ID(sold_shares + ?),
		    participants = participants + 1,
		    status = IF(sold_shares >= total_shares, 2, 1),
		    updated_at = ?
		WHERE round_id = ? AND status = 1 AND sold_shares + ? <= total_shares`

	res, err := tx.ExecContext(ctx, sqlStr, n, now, roundID, n)
	if err != nil {
		return 0, false, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, false, err
	}
	if affected == 0 {
		return 0, false, false, nil
	}

	if err := tx.GetContext(ctx, &newSold, "SELECT LAST_INSERT_ID()"); err != nil {
		return 0, false, false, err
	}

	var total int64
	if err := tx.GetContext(ctx, &total, "SELECT total_shares FROM lottery_rounds WHERE round_id = ?", roundID); err != nil {
		return 0, false, false, err
	}

	return newSold, newSold >= total, true, nil
}

// ClaimDraw 开奖认领 CAS：full -> drawing，0 行命中表示认领失败（已被他人认领或已开奖）
func ClaimDraw(ctx context.Context, exec sqlx.ExtContext, roundID string) (bool, error) {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE lottery_rounds SET status = 3, updated_at = ? WHERE round_id = ? AND status = 2"

	res, err := exec.ExecContext(ctx, sqlStr, now, roundID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClaimDrawOverride 管理员提前开奖认领：active/full -> drawing
func ClaimDrawOverride(ctx context.Context, exec sqlx.ExtContext, roundID string) (bool, error) {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE lottery_rounds SET status = 3, updated_at = ? WHERE round_id = ? AND status IN (1, 2)"

	res, err := exec.ExecContext(ctx, sqlStr, now, roundID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CompleteRound 结算落库：drawing -> completed，写入中奖信息与开奖证据
// 0 行命中表示状态已被他人推进（结算竞争），调用方按已结算处理
func CompleteRound(ctx context.Context, exec sqlx.ExtContext, roundID string,
	winningNumber int64, winnerParticipationID string, winnerUserID int64, proofJSON string) (bool, error) {
	now := time.Now().UnixMilli()

	sqlStr := `UPDATE lottery_rounds
		SET status = 4, winning_number = ?, winner_participation_id = ?, winner_user_id = ?,
		    draw_time = ?, draw_proof = ?, updated_at = ?
		WHERE round_id = ? AND status = 3`

	res, err := exec.ExecContext(ctx, sqlStr,
		winningNumber, winnerParticipationID, winnerUserID, now, proofJSON, now, roundID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CancelRound 取消期次：active/full -> cancelled
func CancelRound(ctx context.Context, exec sqlx.ExtContext, roundID string) (bool, error) {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE lottery_rounds SET status = 5, updated_at = ? WHERE round_id = ? AND status IN (1, 2)"

	res, err := exec.ExecContext(ctx, sqlStr, now, roundID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// StuckRoundRow 扫描器用的轻量投影
type StuckRoundRow struct {
	RoundID string `db:"round_id"`
	Status  int8   `db:"status"`
}

// ListStuckRounds 查询停留在指定状态超过阈值的期次（扫描器重触发用）
func ListStuckRounds(ctx context.Context, exec sqlx.ExtContext, status int8, olderThanMs int64, limit int) ([]StuckRoundRow, error) {
	cutoff := time.Now().UnixMilli() - olderThanMs
	sqlStr := "SELECT round_id, status FROM lottery_rounds WHERE status = ? AND updated_at < ? ORDER BY updated_at ASC LIMIT ?"

	var list []StuckRoundRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, status, cutoff, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// GetLatestRoundNumber 查询商品当前最大期号（开下一期用）
func GetLatestRoundNumber(ctx context.Context, exec sqlx.ExtContext, productID string) (int64, error) {
	sqlStr := "SELECT COALESCE(MAX(round_number), 0) FROM lottery_rounds WHERE product_id = ?"
	var n int64
	if err := sqlx.GetContext(ctx, exec, &n, sqlStr, productID); err != nil {
		return 0, err
	}
	return n, nil
}
