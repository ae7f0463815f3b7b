package model

import "time"

// SubmissionStatus は提出物のレビュー状態を表す。
type SubmissionStatus string

const (
	// StatusPending はレビュー待ちの状態。提出直後の初期状態。
	StatusPending SubmissionStatus = "pending"
	// StatusApproved は管理者が承認した状態。
	StatusApproved SubmissionStatus = "approved"
	// StatusRejected は管理者が却下した状態。
	StatusRejected SubmissionStatus = "rejected"
)

// IsValidSubmissionStatus はレビュー状態として許可された値かを判定する。
func IsValidSubmissionStatus(s string) bool {
	switch SubmissionStatus(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Submission は(タスク, ユーザー)ペアごとの提出記録を表す。
// (task_id, user_id) につき最大1件で、再提出は既存レコードを上書きする。
// レビュー状態の遷移は管理者操作のみで行われ、どの状態からどの状態へも遷移できる。
type Submission struct {
	ID          string
	TaskID      string
	UserID      string
	Completed   bool
	EvidenceURL string
	CompletedAt *time.Time
	Status      SubmissionStatus
	Feedback    *string
	ReviewedAt  *time.Time
	ReviewerID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskWithSubmission はタスクテンプレートと本人の提出物を結合した読み取りモデル。
// 未提出のタスクでは Submission が nil になる。
type TaskWithSubmission struct {
	Task       TaskTemplate
	Submission *Submission
}

// SubmissionDetail は提出物と提出者・タスク情報を結合した管理者向け読み取りモデル。
type SubmissionDetail struct {
	Submission
	UserDisplayName string
	UserEmail       string
	TaskNumber      int
	TaskTitle       string
	TaskDescription string
}
