package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Content — сгенерированный материал, готовый к модерации и публикации.
type Content struct {
	ID int64 `json:"id"`

	AccountID int64 `json:"account_id"`

	// TaskID — задача генерации, создавшая контент.
	TaskID string `json:"task_id,omitempty"`

	Title    string `json:"title"`
	Body     string `json:"content"`
	Summary  string `json:"summary,omitempty"`
	Category string `json:"category,omitempty"`

	WordCount int `json:"word_count"`

	ReviewStatus  ReviewStatus  `json:"review_status"`
	PublishStatus PublishStatus `json:"publish_status"`

	// ExternalID — идентификатор на внешней платформе после публикации.
	ExternalID  string     `json:"external_id,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Approve помечает контент одобренным.
func (c *Content) Approve(now time.Time) {
	c.ReviewStatus = ReviewStatusApproved
	c.UpdatedAt = now
}

// IsApproved возвращает true, если контент прошёл модерацию.
func (c *Content) IsApproved() bool {
	return c.ReviewStatus == ReviewStatusApproved
}

// Truncate обрезает строку до max рун, добавляя "..." при обрезке.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

// CountWords считает слова: каждый иероглиф CJK — отдельное слово,
// остальной текст делится по пробелам.
func CountWords(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		switch {
		case isCJK(r):
			count++
			inWord = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
