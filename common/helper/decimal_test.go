package helper

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMulShares(t *testing.T) {
	// 0.1*3 浮点直接乘会得到 0.30000000000000004
	got := MulShares(0.1, 3)
	if !got.Equal(decimal.NewFromFloat(0.3)) {
		t.Fatalf("0.1*3: want 0.3, got %s", got)
	}
	got = MulShares(2.5, 100)
	if !got.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("2.5*100: want 250, got %s", got)
	}
	if !MulShares(1.5, 0).IsZero() {
		t.Fatalf("zero shares must cost zero")
	}
}

func TestAddSubFloat(t *testing.T) {
	if got := SubFloat(10.1, 0.2); got != 9.9 {
		t.Fatalf("10.1-0.2: want 9.9, got %v", got)
	}
	if got := AddFloat(0.1, 0.2); got != 0.3 {
		t.Fatalf("0.1+0.2: want 0.3, got %v", got)
	}
}

func TestTrimDecimal(t *testing.T) {
	cases := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromFloat(1.005), "1.01"},
		{decimal.NewFromFloat(2.5), "2.50"},
		{decimal.NewFromInt(3), "3.00"},
	}
	for _, c := range cases {
		if got := TrimDecimal(c.in); got != c.want {
			t.Fatalf("trim %s: want %s, got %s", c.in, c.want, got)
		}
	}
}
