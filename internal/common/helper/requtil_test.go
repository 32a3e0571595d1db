package helper

import (
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want int8
		ok   bool
	}{
		{"", 1, true},
		{"paid", 1, true},
		{"1", 1, true},
		{"PAID", 1, true},
		{"free", 2, true},
		{"2", 2, true},
		{" Free ", 2, true},
		{"gift", 0, false},
		{"3", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseKind(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("ParseKind(%q) = (%d,%v), want (%d,%v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestValidateParticipate(t *testing.T) {
	valid := func() ParticipateParsed {
		return ParticipateParsed{
			RoundId:        "round-1",
			SharesCount:    3,
			Kind:           "paid",
			IdempotencyKey: "idem-1",
		}
	}

	p := valid()
	if ok, msg := ValidateParticipate(&p); !ok {
		t.Fatalf("valid input rejected: %s", msg)
	}
	if p.KindCode != 1 {
		t.Fatalf("kind code: want 1, got %d", p.KindCode)
	}

	p = valid()
	p.Kind = "free"
	if ok, _ := ValidateParticipate(&p); !ok || p.KindCode != 2 {
		t.Fatalf("free kind should normalize to 2")
	}

	p = valid()
	p.RoundId = ""
	if ok, _ := ValidateParticipate(&p); ok {
		t.Fatalf("empty round_id should fail")
	}

	p = valid()
	p.IdempotencyKey = ""
	if ok, _ := ValidateParticipate(&p); ok {
		t.Fatalf("empty idempotency_key should fail")
	}

	p = valid()
	p.SharesCount = 0
	if ok, _ := ValidateParticipate(&p); ok {
		t.Fatalf("zero shares should fail")
	}

	p = valid()
	p.SharesCount = 100001
	if ok, _ := ValidateParticipate(&p); ok {
		t.Fatalf("oversized shares should fail")
	}

	p = valid()
	p.RoundId = strings.Repeat("x", 65)
	if ok, _ := ValidateParticipate(&p); ok {
		t.Fatalf("overlong round_id should fail")
	}

	p = valid()
	p.Kind = "bonus"
	if ok, _ := ValidateParticipate(&p); ok {
		t.Fatalf("unknown kind should fail")
	}
}

func TestValidateForceDraw(t *testing.T) {
	f := ForceDrawParsed{RoundId: "r-1", Operator: "ops"}
	if ok, msg := ValidateForceDraw(&f); !ok {
		t.Fatalf("valid input rejected: %s", msg)
	}
	f.RoundId = ""
	if ok, _ := ValidateForceDraw(&f); ok {
		t.Fatalf("empty round_id should fail")
	}
}

func TestValidateCreateRound(t *testing.T) {
	c := CreateRoundParsed{ProductId: "prod", TotalShares: 100, PricePerShare: 2.5}
	if ok, msg := ValidateCreateRound(&c); !ok {
		t.Fatalf("valid input rejected: %s", msg)
	}

	c = CreateRoundParsed{ProductId: "", TotalShares: 100}
	if ok, _ := ValidateCreateRound(&c); ok {
		t.Fatalf("empty product_id should fail")
	}

	c = CreateRoundParsed{ProductId: "prod", TotalShares: 0}
	if ok, _ := ValidateCreateRound(&c); ok {
		t.Fatalf("zero total_shares should fail")
	}

	c = CreateRoundParsed{ProductId: "prod", TotalShares: 10000001}
	if ok, _ := ValidateCreateRound(&c); ok {
		t.Fatalf("oversized total_shares should fail")
	}

	c = CreateRoundParsed{ProductId: "prod", TotalShares: 10, PricePerShare: -1}
	if ok, _ := ValidateCreateRound(&c); ok {
		t.Fatalf("negative price should fail")
	}
}

func TestIsJSONContentType(t *testing.T) {
	if !IsJSONContentType("application/json") || !IsJSONContentType("application/json; charset=utf-8") {
		t.Fatalf("json content type not detected")
	}
	if IsJSONContentType("application/x-www-form-urlencoded") {
		t.Fatalf("form content type misdetected as json")
	}
}
