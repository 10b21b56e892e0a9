package scene

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
	for _, mm := range samples {
		pt := mm * MmToPt
		back := pt * PtToMm
		if diff := math.Abs(back - mm); diff > 1e-9 {
			t.Fatalf("mm→pt→mm 往返误差过大: in=%gmm pt=%g back=%g diff=%g", mm, pt, back, diff)
		}
	}
}

// TestLengthPoints 覆盖 Length 在常见单位上到 pt 的转换。
func TestLengthPoints(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{"12pt", 12},
		{"1in", 72},
		{"2.54cm", 72},
		{"25.4mm", 72},
		{"96px", 72},
		{"-3in", -216},
		{" 4PT ", 4},
		{".5in", 36},
	}
	for _, tc := range cases {
		l, err := ParseLength(tc.in)
		if err != nil {
			t.Fatalf("解析 %q 失败: %v", tc.in, err)
		}
		if got := l.Points(); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%q 转 pt 期望 %g，实际 %g", tc.in, tc.want, got)
		}
	}
}

func TestParseLengthRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "mm", "abc", "12em", "1..2pt"} {
		if _, err := ParseLength(in); err == nil {
			t.Fatalf("期望 %q 解析失败", in)
		}
	}
}

func TestLengthString(t *testing.T) {
	l := Length{Value: 4.5, Unit: UnitMM}
	if got := l.String(); got != "4.5mm" {
		t.Fatalf("String() = %q", got)
	}
	if got := (Length{Value: 3}).String(); got != "3pt" {
		t.Fatalf("String() = %q", got)
	}
}
