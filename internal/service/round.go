package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	chelper "github.com/reportyao/luckymart-tj-sub011/common/helper"
	infmysql "github.com/reportyao/luckymart-tj-sub011/internal/infra/mysql"
	infrds "github.com/reportyao/luckymart-tj-sub011/internal/infra/redis"
	"github.com/reportyao/luckymart-tj-sub011/internal/model"
	"github.com/reportyao/luckymart-tj-sub011/internal/state"

	"github.com/google/uuid"
	decimal "github.com/shopspring/decimal"
)

var (
	ErrRoundNotCancellable = errors.New("round cannot be cancelled in current state")
)

// 期次快照缓存 TTL：进度条类查询允许短暂滞后
const roundInfoTTL = 5 * time.Second

// RoundInfo 对外的期次快照
type RoundInfo struct {
	RoundID       string  `json:"round_id"`
	ProductID     string  `json:"product_id"`
	RoundNumber   int64   `json:"round_number"`
	TotalShares   int64   `json:"total_shares"`
	SoldShares    int64   `json:"sold_shares"`
	PricePerShare float64 `json:"price_per_share"`
	Participants  int64   `json:"participants"`
	Status        string  `json:"status"`
	WinningNumber int64   `json:"winning_number,omitempty"`
	WinnerUserID  int64   `json:"winner_user_id,omitempty"`
	DrawTime      int64   `json:"draw_time,omitempty"`
}

type RoundService interface {
	// CreateRound 开新期次；roundNumber=0 时自动取当前最大期号+1
	CreateRound(ctx context.Context, productID string, roundNumber, totalShares int64, pricePerShare float64, traceID string) (*model.LotteryRound, error)
	// CancelRound 取消期次并退款（active/full 可取消；免费参与不退额度）
	CancelRound(ctx context.Context, roundID, operator, traceID string) error
	// GetRoundInfo 期次快照（Redis 缓存 + DB 回源）
	GetRoundInfo(ctx context.Context, roundID string) (*RoundInfo, error)
}

type roundService struct{}

func NewRoundService() RoundService { return &roundService{} }

func (s *roundService) CreateRound(ctx context.Context, productID string, roundNumber, totalShares int64, pricePerShare float64, traceID string) (*model.LotteryRound, error) {
	if productID == "" || totalShares < 1 {
		return nil, ErrBadRequest
	}

	db := infmysql.SQLX()

	if roundNumber == 0 {
		latest, err := model.GetLatestRoundNumber(ctx, db, productID)
		if err != nil {
			return nil, err
		}
		roundNumber = latest + 1
	}

	round := &model.LotteryRound{
		RoundID:       uuid.New().String(),
		ProductID:     productID,
		RoundNumber:   roundNumber,
		TotalShares:   totalShares,
		PricePerShare: pricePerShare,
		TraceID:       traceID,
	}
	if err := round.Insert(ctx, db); err != nil {
		return nil, err
	}
	round.Status = state.StatusActive

	fmt.Printf("[Round] 新期次已创建: product_id=%s, round_id=%s, round_number=%d, total_shares=%d, price=%.2f, trace_id=%s\n",
		productID, round.RoundID, roundNumber, totalShares, pricePerShare, traceID)

	return round, nil
}

// CancelRound 取消期次：状态 CAS + 按参与记录逐笔退款（付费部分）
// 退款与状态翻转在同一事务内，要么全退要么不退
func (s *roundService) CancelRound(ctx context.Context, roundID, operator, traceID string) error {
	if roundID == "" {
		return ErrBadRequest
	}

	fmt.Printf("[Round] 收到取消期次请求: round_id=%s, operator=%s, trace_id=%s\n", roundID, operator, traceID)

	db := infmysql.SQLX()

	// 取消涉及全量退款，放宽默认事务超时
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, 10*time.Second)
		txCtx = c
		defer cancel()
	}
	tx, err := db.BeginTxx(txCtx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	round, err := model.GetRoundForUpdate(txCtx, tx, roundID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRoundNotFound
		}
		return err
	}

	cancelled, err := model.CancelRound(txCtx, tx, roundID)
	if err != nil {
		return err
	}
	if !cancelled {
		fmt.Printf("[Round] 期次状态不允许取消: round_id=%s, status=%d, trace_id=%s\n",
			roundID, round.Status, traceID)
		return ErrRoundNotCancellable
	}

	parts, err := model.ListByRoundOrdered(txCtx, tx, roundID)
	if err != nil {
		return err
	}

	// 按用户合并退款金额，每个用户只锁定一次
	refunds := make(map[int64]decimal.Decimal)
	userOrder := make([]int64, 0, len(parts))
	for i := range parts {
		p := parts[i]
		if p.Kind != KindPaid || p.Cost <= 0 {
			continue
		}
		if _, ok := refunds[p.UserID]; !ok {
			userOrder = append(userOrder, p.UserID)
		}
		refunds[p.UserID] = refunds[p.UserID].Add(decimal.NewFromFloat(p.Cost))
	}

	for _, uid := range userOrder {
		amount := refunds[uid]
		user, err := model.GetUserForUpdate(txCtx, tx, uid)
		if err != nil {
			return err
		}

		beforeDec := decimal.NewFromFloat(user.Balance)
		afterDec := beforeDec.Add(amount).Round(2)
		newSpent := chelper.SubFloat(user.TotalSpent, amount.Round(2).InexactFloat64())

		if err := model.UpdateUserBalance(txCtx, tx, uid, afterDec.InexactFloat64(), newSpent); err != nil {
			return err
		}

		ledger := &model.WalletLedger{
			UserID:       uid,
			BizType:      3,
			BizTypeStr:   "refund",
			Amount:       amount.Round(2).InexactFloat64(),
			BeforeAmount: beforeDec.Round(2).InexactFloat64(),
			AfterAmount:  afterDec.InexactFloat64(),
			Currency:     "TJS",
			RoundID:      roundID,
			ProductID:    round.ProductID,
			Remark:       "round cancelled refund",
			TraceID:      traceID,
		}
		if err := ledger.Insert(txCtx, tx); err != nil {
			return err
		}
	}

	if err := model.CreateOutbox(txCtx, tx, "lottery.round_cancelled", roundID, map[string]any{
		"event":      "round_cancelled",
		"round_id":   roundID,
		"product_id": round.ProductID,
		"operator":   operator,
		"refunds":    len(userOrder),
		"trace_id":   traceID,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Round] 提交取消事务失败: round_id=%s, error=%v, trace_id=%s\n", roundID, err, traceID)
		return err
	}

	if r := infrds.Client(); r != nil {
		_ = r.Del(ctx, infrds.RoundInfoKey(roundID)).Err()
	}

	fmt.Printf("[Round] 期次已取消: round_id=%s, refund_users=%d, trace_id=%s\n",
		roundID, len(userOrder), traceID)
	return nil
}

func (s *roundService) GetRoundInfo(ctx context.Context, roundID string) (*RoundInfo, error) {
	if roundID == "" {
		return nil, ErrBadRequest
	}

	// Redis 快照缓存
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.RoundInfoKey(roundID)).Bytes(); len(bs) > 0 {
			var info RoundInfo
			if json.Unmarshal(bs, &info) == nil {
				return &info, nil
			}
		}
	}

	round, err := model.GetRound(ctx, infmysql.SQLX(), roundID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}

	info := &RoundInfo{
		RoundID:       round.RoundID,
		ProductID:     round.ProductID,
		RoundNumber:   round.RoundNumber,
		TotalShares:   round.TotalShares,
		SoldShares:    round.SoldShares,
		PricePerShare: round.PricePerShare,
		Participants:  round.Participants,
		Status:        state.StatusName(round.Status),
	}
	if round.Status == state.StatusCompleted {
		info.WinningNumber = round.WinningNumber
		info.WinnerUserID = round.WinnerUserID
		info.DrawTime = round.DrawTime
	}

	// 回填缓存（降级容错）
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(info); e == nil {
			_ = r.Set(ctx, infrds.RoundInfoKey(roundID), b, roundInfoTTL).Err()
		}
	}

	return info, nil
}
