package redis

import "testing"

func TestKeyBuilders(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{IdemResultKey("k1"), "lottery:idem:result:k1"},
		{IdemLockKey("k1"), "lottery:idem:lock:k1"},
		{RoundInfoKey("r-9"), "lottery:round:r-9"},
		{RoundResultKey("r-9"), "lottery:result:r-9"},
		{TokenBlacklistKey("jti-abc"), "auth:token:black:jti-abc"},
		{RateLimitKey("ip", "1.2.3.4"), "ratelimit:ip:1.2.3.4"},
		{RateLimitKey("user", "user_42"), "ratelimit:user:user_42"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("key: want %q, got %q", c.want, c.got)
		}
	}
}
