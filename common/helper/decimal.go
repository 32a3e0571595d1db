package helper

import (
	"github.com/shopspring/decimal"
)

var (
	OneDecimal = decimal.NewFromInt(1)
)

// TrimDecimal decimal对象四舍五入到2位小数
// 使用 StringFixed(2) 避免截断导致的精度丢失
func TrimDecimal(val decimal.Decimal) string {
	return val.StringFixed(2)
}

// MulShares 份数×单价，份数为整数，金额走 decimal 避免浮点误差
func MulShares(price float64, shares int64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares))
}

// SubFloat 余额减法，返回 float64（库存储层余额为 float64）
func SubFloat(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Float64()
	return v
}

// AddFloat 余额加法
func AddFloat(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Float64()
	return v
}
