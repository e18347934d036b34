package util

import "strings"

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "\u200b"
	// KakaoPreviewRunes 는 '전체보기' 없이 미리보기에 보이는 대략적인 글자 수.
	KakaoPreviewRunes = 180
)

// 카카오톡 '전체보기' 버튼이 뜨도록 안내문 뒤에 제로폭 문자를 채운다.
func ApplyKakaoSeeMorePadding(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	lead := strings.TrimSpace(instruction)
	var b strings.Builder
	b.Grow(len(lead) + len(KakaoZeroWidthSpace)*KakaoSeeMorePadding + len(text) + 1)
	b.WriteString(lead)
	b.WriteString(strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(text)
	return b.String()
}

// 본문 첫 줄이 헤더와 같으면 잘라낸다.
func StripLeadingHeader(text, header string) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(header) == "" {
		return text
	}
	rest, ok := strings.CutPrefix(text, header)
	if !ok {
		return text
	}
	for range 2 {
		if r, cut := strings.CutPrefix(rest, "\r\n"); cut {
			rest = r
			continue
		}
		if r, cut := strings.CutPrefix(rest, "\n"); cut {
			rest = r
		}
	}
	return rest
}

// 헤더를 안내문으로 올리고 나머지 본문에 패딩을 적용한다. 미리보기에 다 들어가는 짧은 글은 그대로 둔다.
func ApplySeeMoreWithHeader(text, header, fallback, suffix string) string {
	if strings.TrimSpace(text) == "" || FitsPreview(text) {
		return text
	}

	instruction := strings.TrimSpace(header)
	if instruction != "" {
		instruction += suffix
	} else {
		instruction = strings.TrimSpace(fallback)
	}
	return ApplyKakaoSeeMorePadding(StripLeadingHeader(text, header), instruction)
}

// FitsPreview 는 접히지 않고 보이는 길이인지 판단한다.
func FitsPreview(text string) bool {
	if strings.Count(text, "\n") >= 10 {
		return false
	}
	return len([]rune(text)) <= KakaoPreviewRunes
}
