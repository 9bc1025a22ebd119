package zhtp

import "testing"

func TestSimulateBFTWith(t *testing.T) {
	if SimulateBFT(4, 1, 10) != 1 {
		t.Fatalf("expected full tolerance when n>=3f+1")
	}
	if p := SimulateBFTWith(3, 1, 100, 0.5); p == 1 {
		t.Fatalf("expected less than full tolerance when quorum is marginal")
	}
}

func TestSizeScale(t *testing.T) {
	if sizeScale(10) != 3 {
		t.Fatalf("expected 3 for small networks, got %d", sizeScale(10))
	}
	if sizeScale(100) != 3 {
		t.Fatalf("expected 3 at the boundary, got %d", sizeScale(100))
	}
	if got := sizeScale(10000); got != 100 {
		t.Fatalf("expected ceil(sqrt(10000))=100, got %d", got)
	}
}

func TestBftMin(t *testing.T) {
	if got := bftMin(10, 0); got != 7 {
		t.Fatalf("expected floor of 7 for small idle network, got %d", got)
	}
	if got := bftMin(10, 100000); got != 40 {
		t.Fatalf("expected throughput to dominate, got %d", got)
	}
}
