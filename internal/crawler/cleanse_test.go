package crawler

import (
	"strings"
	"testing"
)

func TestCleanDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "numeric date", input: "2024.01.15.", want: "2024.01.15."},
		{name: "numeric date with prefix", input: "A12면 1단 2024.01.15.", want: "2024.01.15."},
		{name: "word then token", input: "연합뉴스 3시간", want: "3시간"},
		{name: "no match", input: "3시간 전", want: "3시간 전"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanDate(tt.input); got != tt.want {
				t.Errorf("CleanDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanDate_Idempotent(t *testing.T) {
	inputs := []string{"2024.01.15.", "면 2024.3.1. 오후", "언론사 3시간", "N/A", ""}

	for _, in := range inputs {
		once := CleanDate(in)
		if twice := CleanDate(once); twice != once {
			t.Errorf("CleanDate not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCleanArticleFragment(t *testing.T) {
	markup := `<div>
<ul class="relation_lst"><li><a href="#">관련기사 하나</a></li><li><a href="#">관련기사 둘</a></li></ul>
<dl><dt>사진</dt><dd><a href="#">사진 링크</a></dd></dl>
<p>정부는 <b>15일</b> 수출 통계를 발표했다.</p>
</div>`

	got := CleanArticleFragment(markup)

	for _, marker := range []string{"관련기사", "사진", "<", ">"} {
		if strings.Contains(got, marker) {
			t.Errorf("Output still contains %q: %q", marker, got)
		}
	}

	if !strings.Contains(got, "정부는 15일 수출 통계를 발표했다.") {
		t.Errorf("Output lost article text: %q", got)
	}

	if got != strings.TrimSpace(got) {
		t.Errorf("Output not trimmed: %q", got)
	}
}

func TestCleanArticleFragment_CustomSelectors(t *testing.T) {
	got := CleanArticleFragment(`<ul class="relation_lst"><li>목록</li></ul><div class="ad">광고</div>`, "div.ad")
	if got != "목록" {
		t.Errorf("Expected only the given selectors to be removed, got %q", got)
	}
}

func TestStripQuery(t *testing.T) {
	tests := map[string]string{
		"https://n.news.naver.com/article/001/0001?sid=101": "https://n.news.naver.com/article/001/0001",
		"https://n.news.naver.com/article/001/0001":         "https://n.news.naver.com/article/001/0001",
		" /article/1?a=b?c ":                                "/article/1",
		"":                                                  "",
	}

	for in, want := range tests {
		if got := stripQuery(in); got != want {
			t.Errorf("stripQuery(%q) = %q, want %q", in, got, want)
		}
	}
}
