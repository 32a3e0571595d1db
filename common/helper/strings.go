package helper

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// 判断字符是否为数字
func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// 判断字符是否为英文字符
func isAlpha(r rune) bool {

	if r >= 'A' && r <= 'Z' {
		return true
	} else if r >= 'a' && r <= 'z' {
		return true
	}
	return false
}

// 判断字符串是不是数字
func CtypeDigit(s string) bool {

	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

// 判断字符串是不是字母+数字
func CtypeAlnum(s string) bool {

	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) && !isAlpha(r) {
			return false
		}
	}
	return true
}

func IsEmptyString(str string) bool {

	s := strings.TrimSpace(str)
	if len(s) == 0 {
		return true
	}

	return false
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// GenerateOrderNo 生成订单号：LM + 时间(秒级) + 用户ID后4位 + 4位随机hex
// 例: LM20250828153012000871a3f9
func GenerateOrderNo(userID int64) string {
	suffix := userID % 10000

	var b [2]byte
	_, _ = rand.Read(b[:])

	return fmt.Sprintf("LM%s%04d%s",
		time.Now().Format("20060102150405"), suffix, hex.EncodeToString(b[:]))
}
