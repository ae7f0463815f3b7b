// Package security はアプリケーションのセキュリティ機能を提供する。
//
// FeedbackSanitizerService は管理者が入力するレビューフィードバックを
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// フィードバックはプレーンテキストとして扱うため、bluemondayの
// StrictPolicy（全タグ除去）を使用する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FeedbackSanitizerService はフィードバックテキストのサニタイズ機能のインターフェースを定義する。
// レビュー保存前に使用される。
type FeedbackSanitizerService interface {
	// Sanitize はフィードバックテキストから全てのHTMLタグを除去して返す。
	// 前後の空白もトリムする。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// feedbackSanitizer はFeedbackSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type feedbackSanitizer struct {
	policy *bluemonday.Policy
}

// NewFeedbackSanitizer はFeedbackSanitizerServiceの新しいインスタンスを生成する。
// フィードバックは表示時にエスケープ前提のプレーンテキストなので、
// タグを一切許可しないStrictPolicyを使用する。
func NewFeedbackSanitizer() *feedbackSanitizer {
	return &feedbackSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はフィードバックテキストから全てのHTMLタグを除去して返す。
func (s *feedbackSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ FeedbackSanitizerService = (*feedbackSanitizer)(nil)
