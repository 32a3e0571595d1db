package helper

import (
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// 外呼超时配置常量
const (
	HookTimeout = 8 * time.Second // 外部回调统一超时时间
	FastTimeout = 3 * time.Second // 快速接口超时时间
)

// 全局HTTP客户端，支持连接复用
var globalClient = &fasthttp.Client{
	ReadTimeout:                   5 * time.Second,
	WriteTimeout:                  5 * time.Second,
	MaxIdleConnDuration:           90 * time.Second, // 连接空闲时间
	MaxConnsPerHost:               50,               // 每个主机最大连接数
	MaxConnWaitTimeout:            3 * time.Second,  // 等待连接超时
	DisableHeaderNamesNormalizing: true,
}

// HttpDoTimeout 带超时的HTTP请求，返回 body、状态码、错误
func HttpDoTimeout(requestBody []byte, method string, requestURI string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	defer func() {
		fasthttp.ReleaseResponse(resp)
		fasthttp.ReleaseRequest(req)
	}()

	req.SetRequestURI(requestURI)
	req.Header.SetMethod(method)

	switch method {
	case fasthttp.MethodPost, fasthttp.MethodPut:
		req.SetBody(requestBody)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if err := globalClient.DoTimeout(req, resp, timeout); err != nil {
		return nil, 0, errors.Wrapf(err, "http %s %s", method, requestURI)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())

	return body, resp.StatusCode(), nil
}

// HttpPostJson JSON POST 简化入口
func HttpPostJson(requestURI string, body []byte, timeout time.Duration) ([]byte, int, error) {
	return HttpDoTimeout(body, fasthttp.MethodPost, requestURI,
		map[string]string{"Content-Type": "application/json"}, timeout)
}
