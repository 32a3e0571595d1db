package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// ParseKind 参与方式解析：paid|free 或 1|2，空串默认 paid
func ParseKind(s string) (int8, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "paid", "1":
		return 1, true
	case "free", "2":
		return 2, true
	}
	return 0, false
}

// ParticipateParsed 为解析后的参与入参（与控制器/服务层解耦）
// kind 接收字符串，校验阶段归一化为数值
type ParticipateParsed struct {
	RoundId        string `json:"round_id"`
	SharesCount    int64  `json:"shares_count"`
	Kind           string `json:"kind"`
	IdempotencyKey string `json:"idempotency_key"`

	KindCode int8 `json:"-"`
}

// ParseParticipateFromJSON 解析 JSON 到 ParticipateParsed。失败返回 false 与错误消息。
func ParseParticipateFromJSON(r io.Reader) (ParticipateParsed, bool, string) {
	var out ParticipateParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return ParticipateParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParseParticipateFromForm 从表单读取字段并做强校验。失败返回 false 与可读错误信息。
func ParseParticipateFromForm(ctx *beegocontext.Context) (ParticipateParsed, bool, string) {
	var out ParticipateParsed
	out.RoundId = strings.TrimSpace(ctx.Input.Query("round_id"))
	if out.RoundId == "" {
		return ParticipateParsed{}, false, "round_id required"
	}

	scStr := strings.TrimSpace(ctx.Input.Query("shares_count"))
	if scStr == "" {
		return ParticipateParsed{}, false, "shares_count required"
	}
	sc, err := strconv.ParseInt(scStr, 10, 64)
	if err != nil {
		return ParticipateParsed{}, false, "shares_count must be integer"
	}
	out.SharesCount = sc

	out.Kind = strings.TrimSpace(ctx.Input.Query("kind"))

	out.IdempotencyKey = strings.TrimSpace(ctx.Input.Query("idempotency_key"))
	if out.IdempotencyKey == "" {
		return ParticipateParsed{}, false, "idempotency_key required"
	}

	return out, true, ""
}

// ValidateParticipate 对通用字段做二次校验（适用于 JSON 与 FORM）。失败返回 false 与错误消息。
func ValidateParticipate(in *ParticipateParsed) (bool, string) {
	if strings.TrimSpace(in.RoundId) == "" || strings.TrimSpace(in.IdempotencyKey) == "" {
		return false, "missing or invalid fields"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.RoundId) > 64 || len(in.IdempotencyKey) > 64 {
		return false, "invalid request"
	}
	if in.SharesCount < 1 {
		return false, "shares_count must be >= 1"
	}
	if in.SharesCount > 100000 {
		return false, "shares_count too large"
	}
	kind, ok := ParseKind(in.Kind)
	if !ok {
		return false, "kind must be paid|free"
	}
	in.KindCode = kind
	return true, ""
}

// ParseAndValidateParticipate 按 Content-Type 自动解析并做统一校验
func ParseAndValidateParticipate(ctx *beegocontext.Context) (ParticipateParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseParticipateFromJSON, ParseParticipateFromForm)
	if !ok {
		return ParticipateParsed{}, false, msg
	}
	if ok, msg := ValidateParticipate(&out); !ok {
		return ParticipateParsed{}, false, msg
	}
	return out, true, ""
}

// -------- ForceDraw helpers --------

type ForceDrawParsed struct {
	RoundId  string `json:"round_id"`
	Override bool   `json:"override"` // true 时允许对未售罄期次提前开奖
	Operator string `json:"operator"`
}

func ParseForceDrawFromJSON(r io.Reader) (ForceDrawParsed, bool, string) {
	var out ForceDrawParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return ForceDrawParsed{}, false, "invalid request"
	}
	return out, true, ""
}

func ParseForceDrawFromForm(ctx *beegocontext.Context) (ForceDrawParsed, bool, string) {
	var out ForceDrawParsed
	out.RoundId = strings.TrimSpace(ctx.Input.Query("round_id"))
	out.Operator = strings.TrimSpace(ctx.Input.Query("operator"))
	ov := strings.ToLower(strings.TrimSpace(ctx.Input.Query("override")))
	out.Override = ov == "1" || ov == "true"
	return out, true, ""
}

func ValidateForceDraw(in *ForceDrawParsed) (bool, string) {
	if strings.TrimSpace(in.RoundId) == "" {
		return false, "round_id required"
	}
	if len(in.RoundId) > 64 || len(in.Operator) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

// ParseAndValidateForceDraw 按 Content-Type 自动解析并校验
func ParseAndValidateForceDraw(ctx *beegocontext.Context) (ForceDrawParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseForceDrawFromJSON, ParseForceDrawFromForm)
	if !ok {
		return ForceDrawParsed{}, false, msg
	}
	if ok, msg := ValidateForceDraw(&out); !ok {
		return ForceDrawParsed{}, false, msg
	}
	return out, true, ""
}

// -------- CreateRound helpers --------

type CreateRoundParsed struct {
	ProductId     string  `json:"product_id"`
	RoundNumber   int64   `json:"round_number"` // 0 表示自动取当前最大期号+1
	TotalShares   int64   `json:"total_shares"`
	PricePerShare float64 `json:"price_per_share"`
}

func ParseCreateRoundFromJSON(r io.Reader) (CreateRoundParsed, bool, string) {
	var out CreateRoundParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return CreateRoundParsed{}, false, "invalid request"
	}
	return out, true, ""
}

func ParseCreateRoundFromForm(ctx *beegocontext.Context) (CreateRoundParsed, bool, string) {
	var out CreateRoundParsed
	out.ProductId = strings.TrimSpace(ctx.Input.Query("product_id"))
	if v := strings.TrimSpace(ctx.Input.Query("round_number")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out.RoundNumber = n
		}
	}
	if v := strings.TrimSpace(ctx.Input.Query("total_shares")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out.TotalShares = n
		}
	}
	if v := strings.TrimSpace(ctx.Input.Query("price_per_share")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out.PricePerShare = f
		}
	}
	return out, true, ""
}

func ValidateCreateRound(in *CreateRoundParsed) (bool, string) {
	if strings.TrimSpace(in.ProductId) == "" {
		return false, "product_id required"
	}
	if len(in.ProductId) > 64 {
		return false, "invalid request"
	}
	if in.TotalShares < 1 || in.TotalShares > 10000000 {
		return false, "total_shares must be in [1, 10000000]"
	}
	if in.RoundNumber < 0 {
		return false, "round_number must be >= 0"
	}
	if in.PricePerShare < 0 {
		return false, "price_per_share must be >= 0"
	}
	return true, ""
}

// ParseAndValidateCreateRound 按 Content-Type 自动解析并校验
func ParseAndValidateCreateRound(ctx *beegocontext.Context) (CreateRoundParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseCreateRoundFromJSON, ParseCreateRoundFromForm)
	if !ok {
		return CreateRoundParsed{}, false, msg
	}
	if ok, msg := ValidateCreateRound(&out); !ok {
		return CreateRoundParsed{}, false, msg
	}
	return out, true, ""
}
