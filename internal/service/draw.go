package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reportyao/luckymart-tj-sub011/internal/config"
	infmysql "github.com/reportyao/luckymart-tj-sub011/internal/infra/mysql"
	infrds "github.com/reportyao/luckymart-tj-sub011/internal/infra/redis"
	"github.com/reportyao/luckymart-tj-sub011/internal/metrics"
	"github.com/reportyao/luckymart-tj-sub011/internal/model"
	"github.com/reportyao/luckymart-tj-sub011/internal/state"

	chelper "github.com/reportyao/luckymart-tj-sub011/common/helper"

	"github.com/google/uuid"
	decimal "github.com/shopspring/decimal"
)

var (
	ErrBadRequest       = errors.New("bad request")
	ErrRoundNotFound    = errors.New("round not found")
	ErrInvalidStateDraw = errors.New("draw not allowed in current state")
)

// DrawService 开奖与结算编排
// 开奖触发是竞争性的（售罄回调、管理员、扫描器都可能同时到达），
// 以 full -> drawing 的 CAS 认领保证只有一个触发者真正执行；
// 结算本身再以期次状态 + draw_audit 唯一键双重兜底，保证只结算一次。
type DrawService interface {
	// TriggerDraw 常规触发：仅售罄(full)期次可认领
	// trigger: auto(售罄自动) | manual(管理员) | sweep(扫描器)
	TriggerDraw(ctx context.Context, roundID, trigger, operator, traceID string) error
	// ForceDraw 管理员提前开奖：override=true 时未售罄(active)期次也可认领
	ForceDraw(ctx context.Context, roundID string, override bool, operator, traceID string) error
	// VerifyRound 用落库数据重算开奖结果（对外验证口径）
	VerifyRound(ctx context.Context, roundID string) (bool, *DrawProof, error)
}

type drawService struct{}

func NewDrawService() DrawService { return &drawService{} }

func (s *drawService) TriggerDraw(ctx context.Context, roundID, trigger, operator, traceID string) error {
	if roundID == "" {
		return ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordDraw(resultLabel, trigger, start) }()

	fmt.Printf("[Draw] 收到开奖触发: round_id=%s, trigger=%s, trace_id=%s\n", roundID, trigger, traceID)

	db := infmysql.SQLX()

	// CAS 认领：full -> drawing，0 行命中表示已被他人认领或状态不符
	claimed, err := model.ClaimDraw(ctx, db, roundID)
	if err != nil {
		return err
	}
	if !claimed {
		round, e := model.GetRound(ctx, db, roundID)
		if e != nil {
			if e == sql.ErrNoRows {
				return ErrRoundNotFound
			}
			return e
		}
		switch round.Status {
		case state.StatusDrawing:
			// 已在 drawing：扫描器兜底时继续推进结算，其余触发方视为 noop
			if trigger != "sweep" {
				fmt.Printf("[Draw] 期次已在开奖中，跳过: round_id=%s, trigger=%s, trace_id=%s\n",
					roundID, trigger, traceID)
				resultLabel = "noop"
				return nil
			}
			fmt.Printf("[Draw] 扫描器接管卡住的开奖: round_id=%s, trace_id=%s\n", roundID, traceID)
		case state.StatusCompleted:
			fmt.Printf("[Draw] 期次已开奖，跳过: round_id=%s, trace_id=%s\n", roundID, traceID)
			resultLabel = "noop"
			return nil
		default:
			fmt.Printf("[Draw] 期次状态不允许开奖: round_id=%s, status=%d, trace_id=%s\n",
				roundID, round.Status, traceID)
			resultLabel = "noop"
			return ErrInvalidStateDraw
		}
	}

	if err := s.settleRound(ctx, roundID, trigger, operator, traceID); err != nil {
		return err
	}
	resultLabel = "success"
	return nil
}

func (s *drawService) ForceDraw(ctx context.Context, roundID string, override bool, operator, traceID string) error {
	if roundID == "" {
		return ErrBadRequest
	}

	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordDraw(resultLabel, "manual", start) }()

	fmt.Printf("[Draw] 收到管理员开奖请求: round_id=%s, override=%v, operator=%s, trace_id=%s\n",
		roundID, override, operator, traceID)

	db := infmysql.SQLX()

	var claimed bool
	var err error
	if override {
		claimed, err = model.ClaimDrawOverride(ctx, db, roundID)
	} else {
		claimed, err = model.ClaimDraw(ctx, db, roundID)
	}
	if err != nil {
		return err
	}
	if !claimed {
		round, e := model.GetRound(ctx, db, roundID)
		if e != nil {
			if e == sql.ErrNoRows {
				return ErrRoundNotFound
			}
			return e
		}
		// drawing 状态允许管理员继续推进（认领者可能已崩溃）
		if round.Status != state.StatusDrawing {
			return ErrInvalidStateDraw
		}
	}

	if err := s.settleRound(ctx, roundID, "manual", operator, traceID); err != nil {
		return err
	}
	resultLabel = "success"
	return nil
}

// settleRound 结算：计算结果 -> 单事务落库（中奖标记、期次完成、奖品单、账本、审计、Outbox）
// 幂等保护：
//  1. draw_audit 唯一键（round_id），并发重入直接回滚
//  2. 期次状态 CAS（drawing -> completed，0 行命中即已被结算）
func (s *drawService) settleRound(ctx context.Context, roundID, trigger, operator, traceID string) error {
	start := time.Now()
	settleLabel := "fail"
	defer func() { metrics.RecordSettle(settleLabel, start) }()

	db := infmysql.SQLX()

	// 开奖输入：按创建顺序的参与全集（顺序即哈希口径，记录不可变所以无需锁）
	parts, err := model.ListByRoundOrdered(ctx, db, roundID)
	if err != nil {
		return err
	}

	roundSnap, err := model.GetRound(ctx, db, roundID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRoundNotFound
		}
		return err
	}

	// 已结算：幂等返回
	if roundSnap.Status == state.StatusCompleted {
		fmt.Printf("[Draw] 期次已结算，跳过: round_id=%s, trace_id=%s\n", roundID, traceID)
		settleLabel = "already"
		return nil
	}
	if roundSnap.Status != state.StatusDrawing {
		return ErrInvalidStateDraw
	}

	// 无人参与的提前开奖：没有可计算的结果，保持 drawing 等待人工取消
	if len(parts) == 0 {
		fmt.Printf("[Draw] 期次无参与记录，无法开奖: round_id=%s, trace_id=%s\n", roundID, traceID)
		return ErrNoParticipations
	}

	res, err := ComputeDraw(roundSnap.ProductID, roundID, roundSnap.TotalShares, parts)
	if err != nil {
		fmt.Printf("[Draw] 开奖计算失败: round_id=%s, error=%v, trace_id=%s\n", roundID, err, traceID)
		return err
	}

	fmt.Printf("[Draw] 开奖计算完成: round_id=%s, winning_number=%d, winner_user_id=%d, trace_id=%s\n",
		roundID, res.WinningNumber, res.WinnerUserID, traceID)

	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := db.BeginTxx(txCtx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// ========== 幂等性保护 #1: 审计表唯一键 ==========
	audit := &model.DrawAudit{
		RoundID:       roundID,
		WinningNumber: res.WinningNumber,
		WinnerUserID:  res.WinnerUserID,
		Proof:         toJSON(res.Proof),
		Trigger:       trigger,
		Operator:      operator,
		TraceID:       traceID,
	}
	if err := model.CreateDrawAudit(txCtx, tx, audit); err != nil {
		if isMySQLDuplicateKeyError(err) {
			fmt.Printf("[Draw] 审计记录已存在，跳过重复结算: round_id=%s, trace_id=%s\n", roundID, traceID)
			settleLabel = "already"
			return nil
		}
		return err
	}

	// ========== 幂等性保护 #2: 状态 CAS drawing -> completed ==========
	done, err := model.CompleteRound(txCtx, tx, roundID,
		res.WinningNumber, res.WinnerParticipationID, res.WinnerUserID, toJSON(res.Proof))
	if err != nil {
		return err
	}
	if !done {
		fmt.Printf("[Draw] 期次状态已被推进，放弃本次结算: round_id=%s, trace_id=%s\n", roundID, traceID)
		settleLabel = "already"
		return nil
	}

	// 中奖标记只置位一次
	if _, err := model.MarkWinner(txCtx, tx, res.WinnerParticipationID); err != nil {
		return err
	}

	// 锁定中奖用户，生成奖品单与中奖账本（奖品单金额为 0，对价已逐份收取）
	winner, err := model.GetUserForUpdate(txCtx, tx, res.WinnerUserID)
	if err != nil {
		return err
	}

	orderNo := chelper.GenerateOrderNo(winner.UserID)
	ord := &model.Order{
		OrderNo:     orderNo,
		UserID:      winner.UserID,
		RoundID:     roundID,
		ProductID:   roundSnap.ProductID,
		OrderType:   model.OrderTypeLotteryWin,
		TotalAmount: 0,
		Status:      model.OrderStatusPending,
		Remark:      "lottery prize",
		TraceID:     traceID,
	}
	if err := ord.Insert(txCtx, tx); err != nil {
		return err
	}

	balanceDec := decimal.NewFromFloat(winner.Balance)
	ledger := &model.WalletLedger{
		UserID:          winner.UserID,
		BizType:         2,
		BizTypeStr:      "lottery_win",
		Amount:          0,
		BeforeAmount:    balanceDec.Round(2).InexactFloat64(),
		AfterAmount:     balanceDec.Round(2).InexactFloat64(),
		Currency:        "TJS",
		OrderNo:         orderNo,
		ParticipationID: res.WinnerParticipationID,
		RoundID:         roundID,
		ProductID:       roundSnap.ProductID,
		Remark:          "lottery win",
		TraceID:         traceID,
	}
	if err := ledger.Insert(txCtx, tx); err != nil {
		return err
	}

	// Outbox 消息（事务内写入，确保与数据库状态一致）
	if err := model.CreateOutbox(txCtx, tx, "lottery.round_completed", roundID, map[string]any{
		"event":          "round_completed",
		"round_id":       roundID,
		"product_id":     roundSnap.ProductID,
		"winning_number": res.WinningNumber,
		"winner_user_id": res.WinnerUserID,
		"trigger":        trigger,
		"trace_id":       traceID,
	}); err != nil {
		return err
	}
	if err := model.CreateOutbox(txCtx, tx, "lottery.user_won", res.WinnerParticipationID, map[string]any{
		"event":            "user_won",
		"round_id":         roundID,
		"product_id":       roundSnap.ProductID,
		"user_id":          res.WinnerUserID,
		"participation_id": res.WinnerParticipationID,
		"winning_number":   res.WinningNumber,
		"order_no":         orderNo,
		"trace_id":         traceID,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Draw] 提交结算事务失败: round_id=%s, error=%v, trace_id=%s\n", roundID, err, traceID)
		return err
	}

	settleLabel = "success"
	fmt.Printf("[Draw] 结算完成: round_id=%s, winning_number=%d, winner_user_id=%d, order_no=%s, trace_id=%s\n",
		roundID, res.WinningNumber, res.WinnerUserID, orderNo, traceID)

	// 将开奖结果写入 Redis，便于后续查询/回放
	if r := infrds.Client(); r != nil {
		val := map[string]any{
			"round_id":       roundID,
			"product_id":     roundSnap.ProductID,
			"winning_number": res.WinningNumber,
			"winner_user_id": res.WinnerUserID,
			"order_no":       orderNo,
			"status":         state.StatusCompleted,
			"proof":          res.Proof,
		}
		if b, e := json.Marshal(val); e == nil {
			_ = r.Set(ctx, infrds.RoundResultKey(roundID), b, 2*time.Minute).Err()
		}
		_ = r.Del(ctx, infrds.RoundInfoKey(roundID)).Err()
	}

	// 开关：结算后自动开下一期（尽力而为，失败不影响本次结算）
	if config.GetFeatureFlag(config.FlagOpenNextRound) {
		if err := s.openNextRound(ctx, roundSnap, traceID); err != nil {
			fmt.Printf("[Draw] 自动开下一期失败: product_id=%s, error=%v, trace_id=%s\n",
				roundSnap.ProductID, err, traceID)
		}
	}

	return nil
}

// openNextRound 沿用本期的份数与单价开下一期
func (s *drawService) openNextRound(ctx context.Context, prev *model.LotteryRound, traceID string) error {
	db := infmysql.SQLX()

	latest, err := model.GetLatestRoundNumber(ctx, db, prev.ProductID)
	if err != nil {
		return err
	}

	next := &model.LotteryRound{
		RoundID:       uuid.New().String(),
		ProductID:     prev.ProductID,
		RoundNumber:   latest + 1,
		TotalShares:   prev.TotalShares,
		PricePerShare: prev.PricePerShare,
		TraceID:       traceID,
	}
	if err := next.Insert(ctx, db); err != nil {
		return err
	}

	fmt.Printf("[Draw] 已自动开下一期: product_id=%s, round_id=%s, round_number=%d, trace_id=%s\n",
		prev.ProductID, next.RoundID, next.RoundNumber, traceID)
	return nil
}

func (s *drawService) VerifyRound(ctx context.Context, roundID string) (bool, *DrawProof, error) {
	db := infmysql.SQLX()

	round, err := model.GetRound(ctx, db, roundID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil, ErrRoundNotFound
		}
		return false, nil, err
	}
	if round.Status != state.StatusCompleted {
		return false, nil, ErrInvalidStateDraw
	}

	parts, err := model.ListByRoundOrdered(ctx, db, roundID)
	if err != nil {
		return false, nil, err
	}

	return VerifyDraw(round, parts)
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// isMySQLDuplicateKeyError 判断是否为 MySQL 唯一键冲突错误
func isMySQLDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	// MySQL 错误码 1062: Duplicate entry
	return strings.Contains(errMsg, "Error 1062") ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "duplicate key")
}
