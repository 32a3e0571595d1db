package model

import (
	"context"
	"database/sql"
	"time"

	"github.com/reportyao/luckymart-tj-sub011/common/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// User 对应 users 表
// 余额 DECIMAL(18,2) 存储，Go 层以 float64 表示，运算走 decimal
// 免费参与按杜尚别日期重置：last_free_date != 今天 时 free_daily_count 视为 0
// status: 1=正常 2=禁用
type User struct {
	UserID         int64   `db:"user_id"`          // 用户ID(主键)
	TelegramID     string  `db:"telegram_id"`      // Telegram ID
	Username       string  `db:"username"`         // 用户名（可选）
	Balance        float64 `db:"balance"`          // 夺宝币余额
	FreeDailyCount int     `db:"free_daily_count"` // 今日已用免费次数
	LastFreeDate   string  `db:"last_free_date"`   // 最近免费参与日期 yyyy-MM-dd
	TotalSpent     float64 `db:"total_spent"`      // 累计消费
	Status         int8    `db:"status"`           // 状态: 1=正常 2=禁用
	CreatedAt      int64   `db:"created_at"`       // 创建时间（13位毫秒时间戳）
	UpdatedAt      int64   `db:"updated_at"`       // 更新时间（13位毫秒时间戳）
}

const userFields = `user_id, telegram_id, username, balance, free_daily_count, last_free_date,
	total_spent, status, created_at, updated_at`

// GetUser 按用户ID查询（不加锁）
func GetUser(ctx context.Context, db *sqlx.DB, userID int64) (*User, error) {
	sqlStr := `SELECT ` + userFields + ` FROM users WHERE user_id = ? LIMIT 1`

	var user User
	err := db.GetContext(ctx, &user, sqlStr, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get user failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	return &user, nil
}

// GetUserForUpdate 按用户ID加锁查询（FOR UPDATE），必须在事务中调用
func GetUserForUpdate(ctx context.Context, exec sqlx.ExtContext, userID int64) (*User, error) {
	sqlStr := `SELECT ` + userFields + ` FROM users WHERE user_id = ? FOR UPDATE`

	var user User
	err := sqlx.GetContext(ctx, exec, &user, sqlStr, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get user for update failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	return &user, nil
}

// UpdateUserBalance 更新用户余额与累计消费
func UpdateUserBalance(ctx context.Context, exec sqlx.ExtContext, userID int64, newBalance, newTotalSpent float64) error {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE users SET balance = ?, total_spent = ?, updated_at = ? WHERE user_id = ?`

	_, err := exec.ExecContext(ctx, sqlStr, newBalance, newTotalSpent, now, userID)
	if err != nil {
		logger.Error("update user balance failed",
			zap.Int64("user_id", userID),
			zap.Float64("new_balance", newBalance),
			zap.Error(err))
		return err
	}

	return nil
}

// UpdateUserFreeQuota 更新免费次数计数与日期（跨日重置在调用方计算）
func UpdateUserFreeQuota(ctx context.Context, exec sqlx.ExtContext, userID int64, newCount int, date string) error {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE users SET free_daily_count = ?, last_free_date = ?, updated_at = ? WHERE user_id = ?`

	_, err := exec.ExecContext(ctx, sqlStr, newCount, date, now, userID)
	if err != nil {
		logger.Error("update user free quota failed",
			zap.Int64("user_id", userID),
			zap.Int("new_count", newCount),
			zap.Error(err))
		return err
	}

	return nil
}

// GetUserBalance 非锁查询余额（幂等冲突后的回补读取）
func GetUserBalance(ctx context.Context, db *sqlx.DB, userID int64) (float64, error) {
	sqlStr := `SELECT balance FROM users WHERE user_id = ? LIMIT 1`

	var balance float64
	if err := db.GetContext(ctx, &balance, sqlStr, userID); err != nil {
		return 0, err
	}

	return balance, nil
}
