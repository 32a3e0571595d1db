package response

import "testing"

func TestErrorMessagesCoverBusinessCodes(t *testing.T) {
	codes := []int{
		CodeSuccess,
		CodeBadRequest,
		CodeBusinessError,
		CodeDuplicateInFlight,
		CodeDuplicateKey,
		CodeRoundNotActive,
		CodeInsufficientShares,
		CodeInsufficientBalance,
		CodeFreeQuotaExceeded,
		CodeRoundChangedRetry,
		CodeInvalidStateDraw,
		CodeNotFound,
		CodeSystemError,
	}
	for _, code := range codes {
		if msg, ok := ErrorMessages[code]; !ok || msg == "" {
			t.Fatalf("code %d has no message", code)
		}
	}
}

func TestGetErrorMessageFallback(t *testing.T) {
	if getErrorMessage(99999) != "未知错误" {
		t.Fatalf("unknown code must fall back to generic message")
	}
	if getErrorMessage(CodeRoundNotActive) == "未知错误" {
		t.Fatalf("known code must use its mapped message")
	}
}

func TestCodesAreDistinct(t *testing.T) {
	codes := []int{
		CodeSuccess, CodeBadRequest, CodeBusinessError, CodeDuplicateInFlight,
		CodeDuplicateKey, CodeRoundNotActive, CodeInsufficientShares,
		CodeInsufficientBalance, CodeFreeQuotaExceeded, CodeRoundChangedRetry,
		CodeInvalidStateDraw, CodeUnauthorized, CodeInvalidToken,
		CodeTokenExpired, CodeTokenRevoked, CodeForbidden, CodeNotFound,
		CodeRateLimitExceeded, CodeSystemError,
	}
	seen := make(map[int]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			t.Fatalf("duplicate business code %d", code)
		}
		seen[code] = true
	}
}
