package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// DrawAudit 开奖审计表（round_id 唯一索引，兜底防重复结算）
type DrawAudit struct {
	ID            int64  `db:"id"`             // 自增ID
	RoundID       string `db:"round_id"`       // 期次ID
	WinningNumber int64  `db:"winning_number"` // 中奖号码
	WinnerUserID  int64  `db:"winner_user_id"` // 中奖用户
	Proof         string `db:"proof"`          // 开奖证据(JSON)
	Trigger       string `db:"trigger_by"`     // 触发方式: auto|manual|sweep
	Operator      string `db:"operator"`       // 操作人（手动开奖时）
	TraceID       string `db:"trace_id"`       // 链路追踪ID
	CreatedAt     int64  `db:"created_at"`     // 创建时间（13位毫秒时间戳）
}

// CreateDrawAudit 写入开奖审计（利用唯一索引防止同期次二次结算）
// 唯一键冲突说明该期次已结算过
func CreateDrawAudit(ctx context.Context, exec sqlx.ExtContext, audit *DrawAudit) error {
	now := time.Now().UnixMilli()
	audit.CreatedAt = now

	sqlStr := `INSERT INTO draw_audit (round_id, winning_number, winner_user_id, proof, trigger_by, operator, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		audit.RoundID, audit.WinningNumber, audit.WinnerUserID, audit.Proof, audit.Trigger, audit.Operator, audit.TraceID, audit.CreatedAt)
	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	audit.ID = id

	return nil
}

// GetDrawAudit 查询开奖审计
func GetDrawAudit(ctx context.Context, db *sqlx.DB, roundID string) (*DrawAudit, error) {
	sqlStr := `SELECT id, round_id, winning_number, winner_user_id, proof, trigger_by, operator, trace_id, created_at
	           FROM draw_audit WHERE round_id = ? LIMIT 1`

	var audit DrawAudit
	if err := db.GetContext(ctx, &audit, sqlStr, roundID); err != nil {
		return nil, err
	}

	return &audit, nil
}
