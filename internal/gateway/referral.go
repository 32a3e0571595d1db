package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	chelper "github.com/reportyao/luckymart-tj-sub011/common/helper"
	"github.com/reportyao/luckymart-tj-sub011/internal/config"
)

// 邀请奖励回调：用户首次参与后通知外部营销服务发放邀请奖励
// 尽力而为，失败只记录不重试（奖励发放侧自身有对账）

type referralEvent struct {
	Event     string `json:"event"`
	UserID    int64  `json:"user_id"`
	RoundID   string `json:"round_id"`
	Timestamp int64  `json:"timestamp"`
	TraceID   string `json:"trace_id"`
}

// NotifyFirstParticipation 通知外部服务用户完成首次参与
func NotifyFirstParticipation(userID int64, roundID, traceID string) {
	cfg := config.GetCurrent()
	if cfg == nil {
		return
	}
	url := strings.TrimSpace(cfg.Lottery.ReferralHookURL)
	if url == "" {
		return
	}

	body, err := json.Marshal(referralEvent{
		Event:     "first_participation",
		UserID:    userID,
		RoundID:   roundID,
		Timestamp: time.Now().UnixMilli(),
		TraceID:   traceID,
	})
	if err != nil {
		return
	}

	_, status, err := chelper.HttpPostJson(url, body, chelper.HookTimeout)
	if err != nil {
		fmt.Printf("[Referral] 回调失败: user_id=%d, url=%s, error=%v, trace_id=%s\n",
			userID, url, err, traceID)
		return
	}
	if status < 200 || status >= 300 {
		fmt.Printf("[Referral] 回调返回非 2xx: user_id=%d, status=%d, trace_id=%s\n",
			userID, status, traceID)
	}
}
