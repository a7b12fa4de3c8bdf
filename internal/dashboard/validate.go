package dashboard

import (
	"strings"
	"unicode/utf8"
)

const (
	MinLabelLength = 2
	MaxLabelLength = 50
	MaxChips       = 4
)

// Normalize 去除首尾空白，内部空白保持不变
func Normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// labelKey 去重比较键：仅忽略大小写，不折叠内部空白（"Hollow  Knight" 与 "Hollow Knight" 视为不同）
func labelKey(normalized string) string {
	return strings.ToLower(normalized)
}

// validateLength 按字符（rune）计数校验长度
func validateLength(normalized string) error {
	n := utf8.RuneCountInString(normalized)
	switch {
	case n < MinLabelLength:
		return newValidationError(ReasonTooShort, normalized)
	case n > MaxLabelLength:
		return newValidationError(ReasonTooLong, normalized)
	}
	return nil
}
