package service

import (
	"testing"

	"github.com/reportyao/luckymart-tj-sub011/internal/model"
)

func TestFreeQuotaUsedSameDay(t *testing.T) {
	u := &model.User{FreeDailyCount: 2, LastFreeDate: "2026-08-28"}
	if got := freeQuotaUsed(u, "2026-08-28"); got != 2 {
		t.Fatalf("same day: want 2, got %d", got)
	}
}

func TestFreeQuotaUsedResetAcrossDays(t *testing.T) {
	u := &model.User{FreeDailyCount: 3, LastFreeDate: "2026-08-27"}
	if got := freeQuotaUsed(u, "2026-08-28"); got != 0 {
		t.Fatalf("cross day: want 0, got %d", got)
	}
	// 从未参与过免费（空日期）
	u = &model.User{FreeDailyCount: 0, LastFreeDate: ""}
	if got := freeQuotaUsed(u, "2026-08-28"); got != 0 {
		t.Fatalf("empty date: want 0, got %d", got)
	}
}

func TestStartNumberFromReservedSold(t *testing.T) {
	// 占位后 sold=7，买3份 -> 号段 [5,7]
	newSold, n := int64(7), int64(3)
	start := newSold - n + 1
	if start != 5 {
		t.Fatalf("start: want 5, got %d", start)
	}
	p := model.Participation{StartNumber: start, SharesCount: n}
	if p.EndNumber() != 7 {
		t.Fatalf("end: want 7, got %d", p.EndNumber())
	}
	// 第一笔：sold=n，起始必为1
	first := n - n + 1
	if first != 1 {
		t.Fatalf("first block must start at 1, got %d", first)
	}
}
