package constant

// 账变类型常量定义
const (
	BalanceChangeParticipate = 1 // 夺宝购买扣款
	BalanceChangeLotteryWin  = 2 // 中奖（0元奖品单，仅记账）
	BalanceChangeRefund      = 3 // 期次取消退款
	BalanceChangeAdjust      = 4 // 人工调整
)

// 账变类型描述映射
var BalanceChangeTypeDesc = map[int]string{
	BalanceChangeParticipate: "participate",
	BalanceChangeLotteryWin:  "lottery_win",
	BalanceChangeRefund:      "refund",
	BalanceChangeAdjust:      "adjust",
}

// GetBalanceChangeTypeDesc 获取账变类型描述
func GetBalanceChangeTypeDesc(changeType int) string {
	if desc, exists := BalanceChangeTypeDesc[changeType]; exists {
		return desc
	}
	return "unknown"
}

// IsValidBalanceChangeType 验证账变类型是否有效
func IsValidBalanceChangeType(changeType int) bool {
	_, exists := BalanceChangeTypeDesc[changeType]
	return exists
}

// 常用账变类型分组
var (
	// 收入类型
	IncomeTypes = []int{BalanceChangeRefund, BalanceChangeAdjust}

	// 支出类型
	ExpenseTypes = []int{BalanceChangeParticipate}

	// 奖励类型
	RewardTypes = []int{BalanceChangeLotteryWin}
)

// IsIncomeType 判断是否为收入类型
func IsIncomeType(changeType int) bool {
	for _, t := range IncomeTypes {
		if t == changeType {
			return true
		}
	}
	return false
}

// IsExpenseType 判断是否为支出类型
func IsExpenseType(changeType int) bool {
	for _, t := range ExpenseTypes {
		if t == changeType {
			return true
		}
	}
	return false
}
