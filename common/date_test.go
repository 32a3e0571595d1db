package common

import (
	"testing"
	"time"
)

func TestDushanbeDate(t *testing.T) {
	// UTC 2026-08-27 20:30 在杜尚别（UTC+5）已是 28 日
	utc := time.Date(2026, 8, 27, 20, 30, 0, 0, time.UTC)
	if got := DushanbeDate(utc); got != "2026-08-28" {
		t.Fatalf("want 2026-08-28, got %s", got)
	}
	// UTC 18:59 仍是 27 日
	utc = time.Date(2026, 8, 27, 18, 59, 0, 0, time.UTC)
	if got := DushanbeDate(utc); got != "2026-08-27" {
		t.Fatalf("want 2026-08-27, got %s", got)
	}
}

func TestGetDateTimeUnix(t *testing.T) {
	utc := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	midnight := GetDateTimeUnix(utc)
	// 杜尚别 2026-08-28 00:00:00 = UTC 2026-08-27 19:00:00
	want := time.Date(2026, 8, 27, 19, 0, 0, 0, time.UTC).Unix()
	if midnight != want {
		t.Fatalf("midnight: want %d, got %d", want, midnight)
	}
}

func TestGetTodayRange(t *testing.T) {
	utc := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	start, end := GetTodayRange(utc)
	if end-start != 86400 {
		t.Fatalf("range: want 86400s, got %d", end-start)
	}
	if ts := utc.Unix(); ts < start || ts >= end {
		t.Fatalf("input time must fall inside its own day range")
	}
}
