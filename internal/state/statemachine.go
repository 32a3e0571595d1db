package state

import "fmt"

// Status 期次状态（lottery_rounds.status）
const (
	StatusActive    int8 = 1 // 售卖中
	StatusFull      int8 = 2 // 已售罄，待开奖
	StatusDrawing   int8 = 3 // 开奖中（已被某个 worker 认领）
	StatusCompleted int8 = 4 // 已开奖结算（终态）
	StatusCancelled int8 = 5 // 已取消（终态）
)

// Event 期次事件
const (
	EvtSellOut  = "sell_out"  // 最后一份售出
	EvtClaim    = "claim"     // 开奖 worker 认领
	EvtSettle   = "settle"    // 结算完成
	EvtCancel   = "cancel"    // 运营取消
	EvtForce    = "force"     // 管理员提前开奖（active 直接进入 drawing）
)

// StatusName 状态可读名
func StatusName(s int8) string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFull:
		return "full"
	case StatusDrawing:
		return "drawing"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// IsTerminal 是否终态
func IsTerminal(s int8) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
// 实际落库采用条件 UPDATE 做 CAS，这里仅作为校验与测试口径
func NextState(cur int8, evt string) (int8, error) {
	switch cur {
	case StatusActive:
		switch evt {
		case EvtSellOut:
			return StatusFull, nil
		case EvtForce:
			return StatusDrawing, nil
		case EvtCancel:
			return StatusCancelled, nil
		}
	case StatusFull:
		switch evt {
		case EvtClaim:
			return StatusDrawing, nil
		case EvtCancel:
			return StatusCancelled, nil
		}
	case StatusDrawing:
		if evt == EvtSettle {
			return StatusCompleted, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", StatusName(cur), evt)
}
