package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 7, 8, 12, 20, 72, 1000}
	for _, pt := range samples {
		back := Pt(pt) / PtToMm
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
}

// TestLengthConversions 覆盖 Length 在常见单位上的转换。
func TestLengthConversions(t *testing.T) {
	cases := []struct {
		in   Length
		mm   float64
		name string
	}{
		{Length{Value: 1, Unit: UnitIN}, 25.4, "1in"},
		{Length{Value: 30, Unit: UnitCM}, 300, "30cm"},
		{Length{Value: 300, Unit: UnitMM}, 300, "300mm"},
		{Length{Value: 300, Unit: UnitNone}, 300, "300"},
		{Length{Value: 72, Unit: UnitPT}, 72 * PtToMm, "72pt"},
	}
	for _, tc := range cases {
		if got := tc.in.ToMM(); math.Abs(got-tc.mm) > 1e-9 {
			t.Fatalf("%s 转 mm 期望 %g，实际 %g", tc.name, tc.mm, got)
		}
	}
}

func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		want Length
	}{
		{"300mm", Length{Value: 300, Unit: UnitMM}},
		{" 30 CM ", Length{Value: 30, Unit: UnitCM}},
		{"12pt", Length{Value: 12, Unit: UnitPT}},
		{"11.5in", Length{Value: 11.5, Unit: UnitIN}},
		{"250", Length{Value: 250, Unit: UnitNone}},
	}
	for _, tc := range cases {
		got, err := ParseLength(tc.in)
		if err != nil {
			t.Fatalf("ParseLength(%q) 返回错误: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLength(%q) = %+v，期望 %+v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "abc", "mm", "-3mm"} {
		if _, err := ParseLength(bad); err == nil {
			t.Fatalf("ParseLength(%q) 期望报错", bad)
		}
	}
}
