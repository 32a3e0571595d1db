package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串。

const (
	// PrefixParticipateIdemResult：参与幂等"结果缓存"Key 的前缀。
	// 缓存某个 idempotency key 对应的第一次成功结果（ParticipateOutput JSON），重复请求直接返回。
	PrefixParticipateIdemResult = "lottery:idem:result:"
	// PrefixParticipateIdemLock：参与幂等"进行中锁"Key 的前缀。
	// SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求。
	PrefixParticipateIdemLock = "lottery:idem:lock:"

	// PrefixRoundInfo：期次快照缓存（进度条、剩余份数等快速查询）
	PrefixRoundInfo = "lottery:round:"
	// PrefixRoundResult：开奖结果缓存
	PrefixRoundResult = "lottery:result:"

	// PrefixTokenBlacklist：登出 JWT 黑名单
	PrefixTokenBlacklist = "auth:token:black:"

	// PrefixRateLimit：滑动窗口限流
	PrefixRateLimit = "ratelimit:"
)

// IdemResultKey 构造幂等"结果缓存"的完整 Key。
// 形如：lottery:idem:result:{idempotency_key}
func IdemResultKey(k string) string { return PrefixParticipateIdemResult + k }

// IdemLockKey 构造幂等"进行中锁"的完整 Key。
// 形如：lottery:idem:lock:{idempotency_key}
func IdemLockKey(k string) string { return PrefixParticipateIdemLock + k }

// RoundInfoKey 期次快照缓存 Key。形如：lottery:round:{round_id}
func RoundInfoKey(roundID string) string { return PrefixRoundInfo + roundID }

// RoundResultKey 开奖结果缓存 Key。形如：lottery:result:{round_id}
func RoundResultKey(roundID string) string { return PrefixRoundResult + roundID }

// TokenBlacklistKey 登出黑名单 Key。形如：auth:token:black:{jti}
func TokenBlacklistKey(jti string) string { return PrefixTokenBlacklist + jti }

// RateLimitKey 限流 Key。形如：ratelimit:{scope}:{subject}
func RateLimitKey(scope, subject string) string { return PrefixRateLimit + scope + ":" + subject }
