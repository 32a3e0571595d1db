package model

import "testing"

func TestParticipationNumberBlock(t *testing.T) {
	p := Participation{StartNumber: 11, SharesCount: 5}

	if p.EndNumber() != 15 {
		t.Fatalf("end: want 15, got %d", p.EndNumber())
	}
	for n := int64(11); n <= 15; n++ {
		if !p.Contains(n) {
			t.Fatalf("should contain %d", n)
		}
	}
	if p.Contains(10) || p.Contains(16) {
		t.Fatalf("block boundaries leak")
	}
}

func TestParticipationSingleShare(t *testing.T) {
	p := Participation{StartNumber: 7, SharesCount: 1}
	if p.EndNumber() != 7 || !p.Contains(7) || p.Contains(8) {
		t.Fatalf("single share block broken")
	}
}

func TestAssignedNumbers(t *testing.T) {
	p := Participation{StartNumber: 3, SharesCount: 4}
	nums := p.AssignedNumbers()
	if len(nums) != 4 {
		t.Fatalf("len: want 4, got %d", len(nums))
	}
	for i, n := range nums {
		if n != int64(3+i) {
			t.Fatalf("nums[%d]: want %d, got %d", i, 3+i, n)
		}
	}
}
