package common

import (
	"time"
)

// 塔吉克斯坦时区（UTC+5，无夏令时）
var dushanbeLoc = time.FixedZone("Asia/Dushanbe", 5*60*60)

// DushanbeNow 获取杜尚别当前时间
func DushanbeNow() time.Time {
	return time.Now().In(dushanbeLoc)
}

// DushanbeDate 获取杜尚别日期字符串 yyyy-MM-dd（免费次数按此日期重置）
func DushanbeDate(t time.Time) string {
	return t.In(dushanbeLoc).Format("2006-01-02")
}

// DushanbeToday 获取杜尚别今天的日期字符串
func DushanbeToday() string {
	return DushanbeDate(time.Now())
}

// 获取某天杜尚别 0点0分0秒的时间戳
func GetDateTimeUnix(input time.Time) int64 {
	year, month, day := input.In(dushanbeLoc).Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, dushanbeLoc)

	return midnight.Unix()
}

// 获取当天 00:00:00 和 第二天 00:00:00（杜尚别时间）
func GetTodayRange(t time.Time) (start, end int64) {
	year, month, day := t.In(dushanbeLoc).Date()

	startTime := time.Date(year, month, day, 0, 0, 0, 0, dushanbeLoc)
	endTime := startTime.AddDate(0, 0, 1) // +1 天

	return startTime.Unix(), endTime.Unix()
}
