package vehicle

import "testing"

func TestFuzzyEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1HGCM82633A004352", "1HGCM82633A004352", true},
		{"1HGCM82633A00435*", "1HGCM82633A004352", true},
		{"1HGCM8263*A004352", "1HGCM82633A004352", true},
		{"1HGCM82633A004352", "1HGCM8263*A00435*", true},
		{"****************2", "1HGCM82633A004352", true},
		{"1HGCM82633A004352", "1HGCM82633A004353", false},
		{"1HGCM82633A00435", "1HGCM82633A004352", false}, // 长度不同
		{"", "", true},
		{"*", "", false},
	}
	for _, tc := range cases {
		if got := fuzzyEqual(tc.a, tc.b); got != tc.want {
			t.Fatalf("fuzzyEqual(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMatchIdentity(t *testing.T) {
	// VIN 与发动机号都要匹配
	if !MatchIdentity("1HGCM82633A004352", "4G1*", "1HGCM82633A004352", "4G15") {
		t.Fatalf("expected masked engine to match")
	}
	if MatchIdentity("1HGCM82633A004352", "4G16", "1HGCM82633A004352", "4G15") {
		t.Fatalf("engine mismatch must fail")
	}
	if MatchIdentity("", "4G15", "", "4G15") {
		t.Fatalf("empty VIN never matches")
	}
	// 通配重合可能合并两辆不同的车——这是既定策略
	if !MatchIdentity("1HGCM82633A00435*", "4G15", "1HGCM82633A004359", "4G15") {
		t.Fatalf("wildcard-matches-anything policy must be preserved")
	}
}
