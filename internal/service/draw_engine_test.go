package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/reportyao/luckymart-tj-sub011/internal/model"
)

// 构造连续号段的参与记录，号段从1开始依次排布
func makeParts(shares ...int64) []model.Participation {
	parts := make([]model.Participation, 0, len(shares))
	next := int64(1)
	for i, n := range shares {
		parts = append(parts, model.Participation{
			ID:              int64(i + 1),
			ParticipationID: "p-" + string(rune('a'+i)),
			UserID:          int64(100 + i),
			StartNumber:     next,
			SharesCount:     n,
		})
		next += n
	}
	return parts
}

func TestComputeDrawDeterministic(t *testing.T) {
	parts := makeParts(3, 5, 2)
	r1, err := ComputeDraw("prod-1", "round-1", 10, parts)
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}
	for i := 0; i < 10; i++ {
		r2, err := ComputeDraw("prod-1", "round-1", 10, parts)
		if err != nil {
			t.Fatalf("compute error: %v", err)
		}
		if r2.WinningNumber != r1.WinningNumber || r2.WinnerParticipationID != r1.WinnerParticipationID {
			t.Fatalf("non-deterministic: %d vs %d", r1.WinningNumber, r2.WinningNumber)
		}
		if r2.Proof.HashA != r1.Proof.HashA || r2.Proof.HashB != r1.Proof.HashB {
			t.Fatalf("proof hash changed between runs")
		}
	}
}

func TestComputeDrawNumberInRange(t *testing.T) {
	totals := []int64{1, 2, 7, 100, 9999}
	for _, total := range totals {
		parts := makeParts(total)
		res, err := ComputeDraw("prod", "round", total, parts)
		if err != nil {
			t.Fatalf("total=%d compute error: %v", total, err)
		}
		if res.WinningNumber < 1 || res.WinningNumber > total {
			t.Fatalf("total=%d winning number out of range: %d", total, res.WinningNumber)
		}
	}
}

func TestComputeDrawWinnerCoversNumber(t *testing.T) {
	parts := makeParts(4, 1, 10, 5)
	res, err := ComputeDraw("prod-x", "round-x", 20, parts)
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}
	var winner *model.Participation
	for i := range parts {
		if parts[i].ParticipationID == res.WinnerParticipationID {
			winner = &parts[i]
		}
	}
	if winner == nil {
		t.Fatalf("winner participation not in input")
	}
	if !winner.Contains(res.WinningNumber) {
		t.Fatalf("winner [%d,%d] does not contain %d",
			winner.StartNumber, winner.EndNumber(), res.WinningNumber)
	}
	if res.WinnerUserID != winner.UserID {
		t.Fatalf("winner user mismatch: %d vs %d", res.WinnerUserID, winner.UserID)
	}
}

func TestComputeDrawOrderSensitive(t *testing.T) {
	// 参与顺序是哈希口径的一部分：交换两条记录的ID顺序应改变 hashA
	a := makeParts(5, 5)
	b := []model.Participation{a[1], a[0]}
	// 保持号段一致，只换拼接顺序
	b[0].StartNumber, b[1].StartNumber = 1, 6

	r1, err := ComputeDraw("p", "r", 10, a)
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}
	r2, err := ComputeDraw("p", "r", 10, b)
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}
	if r1.Proof.HashA == r2.Proof.HashA {
		t.Fatalf("hashA should depend on participation order")
	}
}

func TestComputeDrawDifferentRounds(t *testing.T) {
	parts := makeParts(10)
	r1, _ := ComputeDraw("prod", "round-1", 10, parts)
	r2, _ := ComputeDraw("prod", "round-2", 10, parts)
	if r1.Proof.HashB == r2.Proof.HashB {
		t.Fatalf("hashB should differ across rounds")
	}
}

func TestComputeDrawEmptyAndInvalid(t *testing.T) {
	if _, err := ComputeDraw("p", "r", 10, nil); !errors.Is(err, ErrNoParticipations) {
		t.Fatalf("want ErrNoParticipations, got %v", err)
	}
	if _, err := ComputeDraw("p", "r", 0, makeParts(1)); err == nil {
		t.Fatalf("want error for total_shares=0")
	}
}

func TestComputeDrawGapIsIntegrityError(t *testing.T) {
	// 号段未覆盖全量号码：中奖号码可能落在空洞里，此时必须报数据损坏
	hit := false
	for total := int64(2); total <= 64; total++ {
		parts := []model.Participation{{
			ID: 1, ParticipationID: "only", UserID: 1, StartNumber: 1, SharesCount: 1,
		}}
		res, err := ComputeDraw("p", "r", total, parts)
		if err != nil {
			if !errors.Is(err, ErrWinnerNotFound) {
				t.Fatalf("total=%d unexpected error: %v", total, err)
			}
			hit = true
			continue
		}
		if res.WinningNumber != 1 {
			t.Fatalf("total=%d winner outside covered range: %d", total, res.WinningNumber)
		}
	}
	if !hit {
		t.Fatalf("expected at least one uncovered winning number in sweep")
	}
}

func TestVerifyDrawRoundTrip(t *testing.T) {
	parts := makeParts(3, 7)
	res, err := ComputeDraw("prod-v", "round-v", 10, parts)
	if err != nil {
		t.Fatalf("compute error: %v", err)
	}

	round := &model.LotteryRound{
		RoundID:               "round-v",
		ProductID:             "prod-v",
		TotalShares:           10,
		WinningNumber:         res.WinningNumber,
		WinnerParticipationID: res.WinnerParticipationID,
		DrawProof:             mustJSON(t, res.Proof),
	}

	ok, proof, err := VerifyDraw(round, parts)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if !ok {
		t.Fatalf("verify should pass for untouched data")
	}
	if proof.WinningNumber != res.WinningNumber {
		t.Fatalf("recomputed proof mismatch")
	}

	// 篡改中奖号码后验证必须失败
	round.WinningNumber = res.WinningNumber%10 + 1
	ok, _, err = VerifyDraw(round, parts)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if ok {
		t.Fatalf("verify should fail for tampered winning number")
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}
