package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reportyao/luckymart-tj-sub011/internal/model"
)

// 开奖算法（纯函数，可离线复核）：
//  1. hashA = SHA-256(按创建顺序拼接的全部 participation_id)
//  2. hashB = SHA-256(product_id + round_id)
//  3. A = hashA 前8位十六进制转 uint64，B 同理
//  4. winning_number = (A+B) mod total_shares + 1（号码从1开始）
// 输入全部来自落库数据，同一期次任何时刻重算结果一致
const DrawAlgorithmVersion = "sha256-v2"

var (
	ErrNoParticipations = errors.New("round has no participations")
	// ErrWinnerNotFound 表示号段数据损坏（中奖号码不在任何参与区间内），不可重试
	ErrWinnerNotFound = errors.New("winning number not covered by any participation")
)

// DrawProof 开奖证据，落库到 lottery_rounds.draw_proof，供第三方验证
type DrawProof struct {
	Algorithm          string `json:"algorithm"`
	HashA              string `json:"hash_a"`
	HashB              string `json:"hash_b"`
	A                  uint64 `json:"a"`
	B                  uint64 `json:"b"`
	TotalShares        int64  `json:"total_shares"`
	ParticipationCount int    `json:"participation_count"`
	WinningNumber      int64  `json:"winning_number"`
}

// DrawResult 开奖计算结果
type DrawResult struct {
	WinningNumber         int64
	WinnerParticipationID string
	WinnerUserID          int64
	Proof                 DrawProof
}

// ComputeDraw 依据期次与参与记录（按创建顺序）计算开奖结果
func ComputeDraw(productID, roundID string, totalShares int64, parts []model.Participation) (*DrawResult, error) {
	if totalShares <= 0 {
		return nil, fmt.Errorf("invalid total_shares: %d", totalShares)
	}
	if len(parts) == 0 {
		return nil, ErrNoParticipations
	}

	var sb strings.Builder
	for i := range parts {
		sb.WriteString(parts[i].ParticipationID)
	}
	hashA := sha256Hex(sb.String())
	hashB := sha256Hex(productID + roundID)

	a, err := firstHexUint64(hashA)
	if err != nil {
		return nil, err
	}
	b, err := firstHexUint64(hashB)
	if err != nil {
		return nil, err
	}

	// a+b 允许环绕，取模语义不变
	winning := int64((a+b)%uint64(totalShares)) + 1

	var winner *model.Participation
	for i := range parts {
		if parts[i].Contains(winning) {
			winner = &parts[i]
			break
		}
	}
	if winner == nil {
		return nil, fmt.Errorf("round %s number %d: %w", roundID, winning, ErrWinnerNotFound)
	}

	return &DrawResult{
		WinningNumber:         winning,
		WinnerParticipationID: winner.ParticipationID,
		WinnerUserID:          winner.UserID,
		Proof: DrawProof{
			Algorithm:          DrawAlgorithmVersion,
			HashA:              hashA,
			HashB:              hashB,
			A:                  a,
			B:                  b,
			TotalShares:        totalShares,
			ParticipationCount: len(parts),
			WinningNumber:      winning,
		},
	}, nil
}

// VerifyDraw 用落库数据重算并与已开奖结果比对，返回是否一致与重算证据
func VerifyDraw(round *model.LotteryRound, parts []model.Participation) (bool, *DrawProof, error) {
	res, err := ComputeDraw(round.ProductID, round.RoundID, round.TotalShares, parts)
	if err != nil {
		return false, nil, err
	}

	ok := res.WinningNumber == round.WinningNumber &&
		res.WinnerParticipationID == round.WinnerParticipationID

	// 如有历史证据，一并比对哈希口径
	if ok && round.DrawProof != "" {
		var stored DrawProof
		if err := json.Unmarshal([]byte(round.DrawProof), &stored); err == nil {
			ok = stored.HashA == res.Proof.HashA && stored.HashB == res.Proof.HashB
		}
	}

	return ok, &res.Proof, nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// firstHexUint64 取哈希前8位十六进制解析为 uint64
func firstHexUint64(hexStr string) (uint64, error) {
	if len(hexStr) < 8 {
		return 0, fmt.Errorf("hash too short: %s", hexStr)
	}
	return strconv.ParseUint(hexStr[:8], 16, 64)
}
