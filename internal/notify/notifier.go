// Package notify は提出・レビューイベントの通知を提供する。
// 通知はベストエフォートであり、失敗しても呼び出し元の処理は継続する。
package notify

import (
	"context"

	"github.com/fpachisa/marathon-training-app/internal/model"
)

// Notifier は通知送信のインターフェース。
type Notifier interface {
	// SubmissionCreated は新規提出を管理者に通知する。
	SubmissionCreated(ctx context.Context, user *model.User, task *model.TaskTemplate, submission *model.Submission)
	// SubmissionReviewed はレビュー結果を提出者に通知する。
	SubmissionReviewed(ctx context.Context, user *model.User, task *model.TaskTemplate, submission *model.Submission)
}

// NopNotifier は何もしない通知実装。SMTP設定がない環境で使用する。
type NopNotifier struct{}

// SubmissionCreated は何もしない。
func (NopNotifier) SubmissionCreated(ctx context.Context, user *model.User, task *model.TaskTemplate, submission *model.Submission) {
}

// SubmissionReviewed は何もしない。
func (NopNotifier) SubmissionReviewed(ctx context.Context, user *model.User, task *model.TaskTemplate, submission *model.Submission) {
}

// compile-time interface check
var _ Notifier = NopNotifier{}
