package security

import (
	"strings"
	"testing"
)

// TestSanitize_RemovesAllHTMLTags は全てのHTMLタグが除去されることを検証する。
func TestSanitize_RemovesAllHTMLTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "今日のランチ",
			want:  "今日のランチ",
		},
		{
			name:  "bタグが除去される",
			input: "<b>太字</b>の名前",
			want:  "太字の名前",
		},
		{
			name:  "scriptタグが除去される",
			input: `<script>alert("xss")</script>キャプション`,
			want:  "キャプション",
		},
		{
			name:  "imgタグのonerrorが除去される",
			input: `<img src=x onerror=alert(1)>写真`,
			want:  "写真",
		},
		{
			name:  "aタグはテキストのみ残る",
			input: `<a href="https://evil.example.com">リンク</a>`,
			want:  "リンク",
		},
		{
			name:  "ネストしたタグも除去される",
			input: "<div><p><span>本文</span></p></div>",
			want:  "本文",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_TrimsWhitespace は前後の空白がトリムされることを検証する。
func TestSanitize_TrimsWhitespace(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.Sanitize("  名前  ")
	if got != "名前" {
		t.Errorf("Sanitize() = %q, want %q", got, "名前")
	}

	// タグ除去後に残った空白もトリムされること
	got = sanitizer.Sanitize("<p>  </p>本文  ")
	if got != "本文" {
		t.Errorf("Sanitize() = %q, want %q", got, "本文")
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := `<b>名前</b> <script>x</script>`
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("Sanitize is not idempotent: %q -> %q", first, second)
	}
}

// TestSanitize_PreservesUnicode は日本語・絵文字がそのまま残ることを検証する。
func TestSanitize_PreservesUnicode(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := "美味しかった🍜 #ラーメン"
	got := sanitizer.Sanitize(input)
	if got != input {
		t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
	}
}

// TestSanitize_LongInput は長い入力でも処理できることを検証する。
func TestSanitize_LongInput(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := strings.Repeat("とても長いキャプション。", 1000)
	got := sanitizer.Sanitize(input)
	if got != input {
		t.Error("long plain text should pass through unchanged")
	}
}
