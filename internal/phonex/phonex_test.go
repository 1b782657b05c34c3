package phonex

import (
	"reflect"
	"testing"
)

func mustCompile(t *testing.T, expr string) *Pattern {
	t.Helper()
	p, err := Compile(expr)
	if err != nil {
		t.Fatalf("compile %q: %v", expr, err)
	}
	return p
}

func TestFindMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    []Match
	}{
		{"literal", "ts", "tsa tsi", []Match{{"ts", 0, 2}, {"ts", 4, 2}}},
		{"no match", "k", "tsa", nil},
		{"consonant vowel", `\c\v`, "ˈbana", []Match{{"ba", 1, 2}, {"na", 3, 2}}},
		{"any phone keeps diacritics", `.a`, "pʰa", []Match{{"pʰa", 0, 3}}},
		{"vowel with length", `\v`, "baː", []Match{{"aː", 1, 2}}},
		{"non overlapping", "aa", "aaaaa", []Match{{"aa", 0, 2}, {"aa", 2, 2}}},
		{"stress class", `\s\c`, "ˈpa ˌti", []Match{{"ˈp", 0, 2}, {"ˌt", 4, 2}}},
		{"bracket passthrough", `[pt]a`, "pa.ta", []Match{{"pa", 0, 2}, {"ta", 3, 2}}},
		{"not inside an affricate", "s", "t͡sa", nil},
		{"affricate as a whole", "t͡s", "t͡sa", []Match{{"t͡s", 0, 3}}},
		{"not the first half of an affricate", "t", "t͡sa ta", []Match{{"t", 5, 1}}},
		{"literal takes its diacritics", "t", "tʰa", []Match{{"tʰ", 0, 2}}},
		{"length mark joins the last phone", "ta", "taː", []Match{{"taː", 0, 3}}},
		{"consonant is a letter", `\c`, "a,b", []Match{{"b", 2, 1}}},
		{"consonant skips modifiers", `\c`, "ʰaʷ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCompile(t, tt.pattern)
			got := p.FindMatches(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindMatches(%q, %q) = %+v, want %+v", tt.pattern, tt.text, got, tt.want)
			}
		})
	}
}

func TestFindMatches_EmptyMatchesTerminate(t *testing.T) {
	p := mustCompile(t, "x*")
	got := p.FindMatches("abc")
	if len(got) != 4 {
		t.Fatalf("expected 4 empty matches, got %+v", got)
	}
	for i, m := range got {
		if m.Length != 0 || m.Offset != i {
			t.Errorf("match %d: %+v", i, m)
		}
	}
}

func TestFindMatches_OrderedAndIdempotent(t *testing.T) {
	p := mustCompile(t, `\c`)
	text := "ˈstɹɛŋkθ ənd"
	first := p.FindMatches(text)
	second := p.FindMatches(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ between runs: %+v vs %+v", first, second)
	}
	for i := 1; i < len(first); i++ {
		if first[i].Offset < first[i-1].End() {
			t.Errorf("match %d overlaps previous: %+v %+v", i, first[i-1], first[i])
		}
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, expr := range []string{"", "  ", "(ts", "[a"} {
		if _, err := Compile(expr); err == nil {
			t.Errorf("expected error for %q", expr)
		}
	}
}

func TestContainsAndMatchesAll(t *testing.T) {
	p := mustCompile(t, `\c\v`)
	if !p.Contains("ˈbana") {
		t.Error("expected Contains")
	}
	if p.MatchesAll("bana") {
		t.Error("MatchesAll should require the whole text")
	}
	if !p.MatchesAll("ba") {
		t.Error("expected MatchesAll for a single CV")
	}
	if !mustCompile(t, "t").MatchesAll("tʰ") {
		t.Error("MatchesAll should accept the diacritics of the last phone")
	}
	if mustCompile(t, "t").MatchesAll("t͡s") || mustCompile(t, "s").Contains("t͡s") {
		t.Error("a literal should not match part of an affricate")
	}
	if p.String() != `\c\v` {
		t.Errorf("unexpected String(): %q", p.String())
	}
}
