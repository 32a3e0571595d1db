package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reportyao/luckymart-tj-sub011/common"
	chelper "github.com/reportyao/luckymart-tj-sub011/common/helper"
	"github.com/reportyao/luckymart-tj-sub011/internal/config"
	"github.com/reportyao/luckymart-tj-sub011/internal/gateway"
	infmysql "github.com/reportyao/luckymart-tj-sub011/internal/infra/mysql"
	infrds "github.com/reportyao/luckymart-tj-sub011/internal/infra/redis"
	"github.com/reportyao/luckymart-tj-sub011/internal/metrics"
	"github.com/reportyao/luckymart-tj-sub011/internal/model"
	"github.com/reportyao/luckymart-tj-sub011/internal/state"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	decimal "github.com/shopspring/decimal"
)

// 处理参与夺宝业务逻辑
const (
	BIZ_TYPE_PARTICIPATE = 1

	KindPaid int8 = 1
	KindFree int8 = 2
)

// ParticipateInput 输入参数
// UserID 来自认证后的 JWT，其余来自请求体
type ParticipateInput struct {
	RoundID        string
	UserID         int64
	SharesCount    int64
	Kind           int8 // 1=paid 2=free
	IdempotencyKey string
	TraceID        string
}

type ParticipateOutput struct {
	ParticipationID string  `json:"participation_id"`
	RoundID         string  `json:"round_id"`
	StartNumber     int64   `json:"start_number"`
	EndNumber       int64   `json:"end_number"`
	SharesCount     int64   `json:"shares_count"`
	Kind            string  `json:"kind"`
	Cost            string  `json:"cost"`
	RemainBalance   string  `json:"remain_balance"`
	RemainFreeCount int     `json:"remain_free_count"`
	RoundStatus     string  `json:"round_status"`
	SoldShares      int64   `json:"sold_shares"`
	TotalShares     int64   `json:"total_shares"`
	RoundFilled     bool    `json:"round_filled"`
	Numbers         []int64 `json:"numbers,omitempty"`
}

type ParticipateService interface {
	Participate(ctx context.Context, in ParticipateInput) (*ParticipateOutput, error)
}

type participateService struct{}

func NewParticipateService() ParticipateService { return &participateService{} }

const (
	// Redis 进行中锁 TTL：需覆盖事务超时，避免锁提前过期导致重复落库走到 DB 兜底
	idemLockTTL = 45 * time.Second
	// 结果缓存 TTL：用于重复请求直接返回第一次成功结果；应覆盖到大多数"短时重试"窗口
	idemResultTTL = 1 * time.Minute
)

// 默认事务超时时间，防止长事务占用资源影响并发（若上游已有 deadline，则沿用上游）
const defaultTxTimeout = 3 * time.Second

// Redis key 构造见 internal/infra/redis/keys.go
var (
	ErrDuplicateInFlight   = errors.New("duplicate request in flight")
	ErrRoundNotActive      = errors.New("round not open for participation")
	ErrInsufficientShares  = errors.New("not enough shares remaining")
	ErrRoundChangedRetry   = errors.New("round changed, retry")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFreeQuotaExceeded   = errors.New("free participation quota exceeded")
	ErrUserDisabled        = errors.New("user disabled")
)

// freeQuotaUsed 返回用户今日已用免费次数（跨日自动视为 0，按杜尚别日期口径）
func freeQuotaUsed(u *model.User, today string) int {
	if u.LastFreeDate != today {
		return 0
	}
	return u.FreeDailyCount
}

// Participate 处理参与主流程：
// 幂等防重 -> 事务内锁用户 -> 条件 UPDATE 原子占号 -> 扣款/扣免费额度 -> 落参与记录与账本 -> Outbox
// 占到的号段由占位后的 sold_shares 反推：start = newSold - n + 1
func (s *participateService) Participate(ctx context.Context, in ParticipateInput) (*ParticipateOutput, error) {

	start := time.Now()
	result := "fail"

	kindStr := "paid"
	if in.Kind == KindFree {
		kindStr = "free"
	}
	defer func() { metrics.RecordParticipate(result, kindStr, in.SharesCount, start) }()

	// 打印接收到的参与请求
	fmt.Printf("[Participate]  收到参与请求: round_id=%s, user_id=%d, shares=%d, kind=%s, idem_key=%s, trace_id=%s\n",
		in.RoundID, in.UserID, in.SharesCount, kindStr, in.IdempotencyKey, in.TraceID)

	if in.SharesCount < 1 {
		return nil, errors.New("shares_count must be positive")
	}

	cfg := config.GetCurrent()

	// 免费参与的单次份数上限（与每日额度独立约束）
	if in.Kind == KindFree && in.SharesCount > int64(cfg.FreePerCallMax()) {
		fmt.Printf("[Participate]  免费参与份数超过单次上限: shares=%d, max=%d, trace_id=%s\n",
			in.SharesCount, cfg.FreePerCallMax(), in.TraceID)
		return nil, ErrFreeQuotaExceeded
	}

	// Redis 快路径：若已有结果缓存，直接返回
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
			var out ParticipateOutput
			if json.Unmarshal(bs, &out) == nil {
				fmt.Printf("[Participate]  Redis 缓存命中: idem_key=%s, participation_id=%s, trace_id=%s\n",
					in.IdempotencyKey, out.ParticipationID, in.TraceID)
				return &out, nil
			}
		}

		// 生成唯一锁值，防止误删其他请求的锁
		lockValue := uuid.New().String()
		lockKey := infrds.IdemLockKey(in.IdempotencyKey)

		// 进行中锁，吸收瞬时重复
		ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
		if !ok {
			// 检查是否有缓存的结果
			if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
				var out ParticipateOutput
				if json.Unmarshal(bs, &out) == nil {
					fmt.Printf("[Participate] Redis 缓存命中（重复请求）: idem_key=%s, participation_id=%s, trace_id=%s\n",
						in.IdempotencyKey, out.ParticipationID, in.TraceID)
					return &out, nil
				}
			}
			fmt.Printf("[Participate]  重复请求进行中: idem_key=%s, trace_id=%s\n",
				in.IdempotencyKey, in.TraceID)
			return nil, ErrDuplicateInFlight
		}

		// 使用 Lua 脚本原子释放锁（仅当锁值匹配时删除）
		defer func() {
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			res, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result()
			if err != nil {
				fmt.Printf("[Participate] 释放分布式锁失败: idem_key=%s, error=%v, trace_id=%s\n",
					in.IdempotencyKey, err, in.TraceID)
			} else if res == int64(0) {
				fmt.Printf("[Participate] 分布式锁已被其他请求释放或过期: idem_key=%s, trace_id=%s\n",
					in.IdempotencyKey, in.TraceID)
			}
		}()
	}

	// 开启 MySQL 事务（带默认超时，防止长事务影响并发）。
	// 若上游 ctx 已设置 deadline，则沿用；否则使用默认 defaultTxTimeout。
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		fmt.Printf("[Participate] 开启事务失败: error=%v, round_id=%s, trace_id=%s\n",
			err, in.RoundID, in.TraceID)
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 锁定用户行：余额与免费额度在同一把锁下校验和更新
	user, err := model.GetUserForUpdate(txCtx, tx, in.UserID)
	if err != nil {
		fmt.Printf("[Participate] 查询用户失败: error=%v, user_id=%d, trace_id=%s\n",
			err, in.UserID, in.TraceID)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Status != 1 {
		fmt.Printf("[Participate]  用户状态异常: user_id=%d, status=%d, trace_id=%s\n",
			user.UserID, user.Status, in.TraceID)
		return nil, ErrUserDisabled
	}

	// 费用：份数 × 单价（免费为 0）。单价从期次上取，条件 UPDATE 之前先普通读一次
	round, err := model.GetRound(txCtx, tx, in.RoundID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRoundNotActive
		}
		fmt.Printf("[Participate]  查询期次失败: error=%v, round_id=%s, trace_id=%s\n",
			err, in.RoundID, in.TraceID)
		return nil, fmt.Errorf("failed to get round info: %w", err)
	}

	costDec := decimal.Zero
	if in.Kind == KindPaid {
		costDec = chelper.MulShares(round.PricePerShare, in.SharesCount)
	}

	// 免费额度校验（杜尚别日期跨日自动重置）
	today := common.DushanbeToday()
	if in.Kind == KindFree {
		used := freeQuotaUsed(user, today)
		if used+int(in.SharesCount) > cfg.FreeDailyLimit() {
			fmt.Printf("[Participate]  免费额度不足: user_id=%d, used=%d, want=%d, limit=%d, trace_id=%s\n",
				user.UserID, used, in.SharesCount, cfg.FreeDailyLimit(), in.TraceID)
			return nil, ErrFreeQuotaExceeded
		}
	}

	// 余额校验（decimal 比较）
	beforeDec := decimal.NewFromFloat(user.Balance)
	if in.Kind == KindPaid && beforeDec.Cmp(costDec) < 0 {
		fmt.Printf("[Participate]  余额不足: user_id=%d, balance=%s, cost=%s, trace_id=%s\n",
			user.UserID, chelper.TrimDecimal(beforeDec), chelper.TrimDecimal(costDec), in.TraceID)
		return nil, ErrInsufficientBalance
	}

	participationID := uuid.New().String()

	// 幂等：先占幂等键，ref 记录 participation_id
	if err := (&model.IdempotencyKey{IdempotencyKey: in.IdempotencyKey, Purpose: "participate", Ref: participationID}).Insert(txCtx, tx); err != nil {
		// 若幂等冲突：尝试返回上次结果
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			fmt.Printf("[Participate]  幂等键冲突，尝试返回上次结果: idem_key=%s, trace_id=%s\n",
				in.IdempotencyKey, in.TraceID)
			_ = tx.Rollback()
			// Redis 先查
			if r := infrds.Client(); r != nil {
				if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
					var out ParticipateOutput
					if json.Unmarshal(bs, &out) == nil {
						fmt.Printf("[Participate]  从 Redis 返回上次结果: participation_id=%s, trace_id=%s\n",
							out.ParticipationID, in.TraceID)
						return &out, nil
					}
				}
			}
			// DB 回源：根据幂等键查 participation_id，再查参与记录与余额
			if out, e := s.rebuildOutputFromDB(ctx, in); e == nil {
				return out, nil
			}
		}
		fmt.Printf("[Participate]  插入幂等键失败: error=%v, idem_key=%s, trace_id=%s\n",
			err, in.IdempotencyKey, in.TraceID)
		return nil, fmt.Errorf("idempotency conflict or insert failed: %w", err)
	}

	// 原子占号：单条条件 UPDATE，0 行命中表示期次非 active 或剩余不足
	newSold, filled, reserved, err := model.ReserveShares(txCtx, tx, in.RoundID, in.SharesCount)
	if err != nil {
		fmt.Printf("[Participate]  占号失败: error=%v, round_id=%s, trace_id=%s\n",
			err, in.RoundID, in.TraceID)
		return nil, err
	}
	if !reserved {
		// 区分失败原因：剩余不足 / 并发竞争 / 状态不对
		cur, e := model.GetRound(txCtx, tx, in.RoundID)
		if e == nil && cur.Status == 1 {
			if cur.TotalShares-cur.SoldShares < in.SharesCount {
				fmt.Printf("[Participate]  剩余份数不足: round_id=%s, sold=%d, total=%d, want=%d, trace_id=%s\n",
					in.RoundID, cur.SoldShares, cur.TotalShares, in.SharesCount, in.TraceID)
				return nil, ErrInsufficientShares
			}
			// 重读后仍有余量：占号竞争导致的瞬时失败，可重试
			fmt.Printf("[Participate]  占号竞争失败可重试: round_id=%s, trace_id=%s\n", in.RoundID, in.TraceID)
			return nil, ErrRoundChangedRetry
		}
		fmt.Printf("[Participate]  期次不可参与: round_id=%s, trace_id=%s\n", in.RoundID, in.TraceID)
		return nil, ErrRoundNotActive
	}

	startNumber := newSold - in.SharesCount + 1
	endNumber := newSold

	// 付费扣款；免费扣当日额度
	afterDec := beforeDec
	freeUsed := freeQuotaUsed(user, today)
	if in.Kind == KindPaid {
		afterDec = beforeDec.Sub(costDec)
		newSpent := chelper.AddFloat(user.TotalSpent, costDec.Round(2).InexactFloat64())
		if err := model.UpdateUserBalance(txCtx, tx, user.UserID, afterDec.Round(2).InexactFloat64(), newSpent); err != nil {
			return nil, err
		}
	} else {
		freeUsed += int(in.SharesCount)
		if err := model.UpdateUserFreeQuota(txCtx, tx, user.UserID, freeUsed, today); err != nil {
			return nil, err
		}
	}

	// 写账本（免费参与金额为 0，同样留痕）
	ledger := &model.WalletLedger{
		UserID:          user.UserID,
		BizType:         BIZ_TYPE_PARTICIPATE, //1
		BizTypeStr:      "participate",        // 冗余
		Amount:          costDec.Round(2).InexactFloat64(),
		BeforeAmount:    beforeDec.Round(2).InexactFloat64(),
		AfterAmount:     afterDec.Round(2).InexactFloat64(),
		Currency:        "TJS",
		ParticipationID: participationID,
		RoundID:         in.RoundID,
		ProductID:       round.ProductID,
		Remark:          "participate deduct",
		TraceID:         in.TraceID,
	}
	if err := ledger.Insert(txCtx, tx); err != nil {
		fmt.Printf("[Participate]  写入账本失败: error=%v, participation_id=%s, trace_id=%s\n",
			err, participationID, in.TraceID)
		return nil, err
	}

	// 落参与记录（号段锚定在占位后的 sold_shares 上）
	part := &model.Participation{
		ParticipationID: participationID,
		RoundID:         in.RoundID,
		ProductID:       round.ProductID,
		UserID:          user.UserID,
		StartNumber:     startNumber,
		SharesCount:     in.SharesCount,
		Kind:            in.Kind,
		Cost:            costDec.Round(2).InexactFloat64(),
		TraceID:         in.TraceID,
	}
	if err := part.Insert(txCtx, tx); err != nil {
		fmt.Printf("[Participate]  创建参与记录失败: error=%v, participation_id=%s, trace_id=%s\n",
			err, participationID, in.TraceID)
		return nil, err
	}

	// 售罄翻转时写 Outbox 消息（事务消息，开奖由提交后异步触发 + 扫描器兜底）
	if filled {
		payload := map[string]any{
			"event":    "round_full",
			"round_id": in.RoundID,
			"sold":     newSold,
		}
		if err := model.CreateOutbox(txCtx, tx, "lottery.round_full", in.RoundID, payload); err != nil {
			fmt.Printf("[Participate]  写入 Outbox 失败: error=%v, round_id=%s, trace_id=%s\n",
				err, in.RoundID, in.TraceID)
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Participate]  提交事务失败: error=%v, participation_id=%s, trace_id=%s\n",
			err, participationID, in.TraceID)
		return nil, err
	}

	result = "success"
	roundStatus := "active"
	if filled {
		roundStatus = "full"
	}
	remainFree := cfg.FreeDailyLimit() - freeUsed
	if remainFree < 0 {
		remainFree = 0
	}
	out := &ParticipateOutput{
		ParticipationID: participationID,
		RoundID:         in.RoundID,
		StartNumber:     startNumber,
		EndNumber:       endNumber,
		SharesCount:     in.SharesCount,
		Kind:            kindStr,
		Cost:            chelper.TrimDecimal(costDec),
		RemainBalance:   chelper.TrimDecimal(afterDec),
		RemainFreeCount: remainFree,
		RoundStatus:     roundStatus,
		SoldShares:      newSold,
		TotalShares:     round.TotalShares,
		RoundFilled:     filled,
		Numbers:         part.AssignedNumbers(),
	}

	// 写入 Redis 结果缓存（降级容错）
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.IdemResultKey(in.IdempotencyKey), b, idemResultTTL).Err()
		}
		// 期次快照缓存失效，下次查询回源重建
		_ = r.Del(ctx, infrds.RoundInfoKey(in.RoundID)).Err()
	}

	// 售罄：异步触发开奖（失败由扫描器兜底重触发）
	if filled {
		go func(roundID, traceID string) {
			c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := NewDrawService().TriggerDraw(c, roundID, "auto", "", traceID); err != nil {
				fmt.Printf("[Participate] 异步触发开奖失败（等待扫描器兜底）: round_id=%s, error=%v, trace_id=%s\n",
					roundID, err, traceID)
			}
		}(in.RoundID, in.TraceID)
	}

	// 首次参与：触发邀请奖励回调（开关控制，尽力而为）
	if config.GetFeatureFlag(config.FlagReferralHook) {
		go s.notifyIfFirstParticipation(user.UserID, in.RoundID, in.TraceID)
	}

	return out, nil
}

// rebuildOutputFromDB 幂等冲突后的 DB 回源：幂等键 -> 参与记录 -> 余额
func (s *participateService) rebuildOutputFromDB(ctx context.Context, in ParticipateInput) (*ParticipateOutput, error) {
	db := infmysql.SQLX()

	ref, err := model.SelectRefByIdemKey(ctx, db, in.IdempotencyKey)
	if err != nil || ref == "" {
		return nil, fmt.Errorf("idempotency ref not found: %w", err)
	}
	part, err := model.GetParticipation(ctx, db, ref)
	if err != nil {
		return nil, err
	}
	balance, err := model.GetUserBalance(ctx, db, part.UserID)
	if err != nil {
		return nil, err
	}

	kindStr := "paid"
	if part.Kind == KindFree {
		kindStr = "free"
	}

	out := &ParticipateOutput{
		ParticipationID: part.ParticipationID,
		RoundID:         part.RoundID,
		StartNumber:     part.StartNumber,
		EndNumber:       part.EndNumber(),
		SharesCount:     part.SharesCount,
		Kind:            kindStr,
		Cost:            chelper.TrimDecimal(decimal.NewFromFloat(part.Cost)),
		RemainBalance:   chelper.TrimDecimal(decimal.NewFromFloat(balance)),
		Numbers:         part.AssignedNumbers(),
	}
	if round, e := model.GetRound(ctx, db, part.RoundID); e == nil {
		out.RoundStatus = state.StatusName(round.Status)
		out.SoldShares = round.SoldShares
		out.TotalShares = round.TotalShares
		out.RoundFilled = round.Status != state.StatusActive
	}

	fmt.Printf("[Participate]  从数据库返回上次结果: participation_id=%s, trace_id=%s\n",
		part.ParticipationID, in.TraceID)

	return out, nil
}

// notifyIfFirstParticipation 只有历史参与数为 1（即刚插入的这条）时才视为首次参与
func (s *participateService) notifyIfFirstParticipation(userID int64, roundID, traceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), chelper.HookTimeout)
	defer cancel()

	count, err := model.CountByUser(ctx, infmysql.SQLX(), userID)
	if err != nil {
		fmt.Printf("[Participate] 查询历史参与数失败: user_id=%d, error=%v, trace_id=%s\n",
			userID, err, traceID)
		return
	}
	if count != 1 {
		return
	}
	gateway.NotifyFirstParticipation(userID, roundID, traceID)
}
