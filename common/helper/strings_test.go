package helper

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestGenerateOrderNo(t *testing.T) {
	no := GenerateOrderNo(123456789)

	if !strings.HasPrefix(no, "LM") {
		t.Fatalf("order no must start with LM: %s", no)
	}
	// LM(2) + 时间戳(14) + 用户后4位(4) + 随机hex(4)
	if len(no) != 24 {
		t.Fatalf("order no length: want 24, got %d (%s)", len(no), no)
	}
	if !CtypeDigit(no[2:16]) {
		t.Fatalf("timestamp segment must be digits: %s", no[2:16])
	}
	if no[16:20] != "6789" {
		t.Fatalf("user suffix: want 6789, got %s", no[16:20])
	}
	if !CtypeAlnum(no[20:]) {
		t.Fatalf("random segment must be hex: %s", no[20:])
	}
}

func TestGenerateOrderNoShortUserID(t *testing.T) {
	no := GenerateOrderNo(7)
	if no[16:20] != "0007" {
		t.Fatalf("user suffix must be zero padded: %s", no[16:20])
	}
}

func TestCtypeDigit(t *testing.T) {
	if !CtypeDigit("0123456789") {
		t.Fatalf("pure digits should pass")
	}
	for _, s := range []string{"", "12a", " 12", "1.2", "-1"} {
		if CtypeDigit(s) {
			t.Fatalf("%q should not be digit", s)
		}
	}
}

func TestCtypeAlnum(t *testing.T) {
	if !CtypeAlnum("abc123XYZ") {
		t.Fatalf("alnum should pass")
	}
	for _, s := range []string{"", "ab-c", "a b", "漢字"} {
		if CtypeAlnum(s) {
			t.Fatalf("%q should not be alnum", s)
		}
	}
}

func TestIsEmptyString(t *testing.T) {
	for _, s := range []string{"", "  ", "\t\n"} {
		if !IsEmptyString(s) {
			t.Fatalf("%q should be empty", s)
		}
	}
	if IsEmptyString(" x ") {
		t.Fatalf("non-blank string reported empty")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(sql.ErrNoRows) {
		t.Fatalf("sql.ErrNoRows should match")
	}
	if !IsNoRows(fmt.Errorf("query user: %w", sql.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows should match")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatalf("unrelated error should not match")
	}
}
