// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fpachisa/marathon-training-app/internal/model"
)

// ErrDuplicateIdentity は(provider, provider_user_id)のUNIQUE制約違反を表す。
// 同一外部IDの初回ログインが並行した場合に発生し、呼び出し側は既存レコードを
// 再検索することでレースを解消する。
var ErrDuplicateIdentity = errors.New("identity already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// identityのUNIQUE制約に違反した場合はErrDuplicateIdentityを返す。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile は再ログイン時にIdPから取得したプロフィールを反映する。
	UpdateProfile(ctx context.Context, id, email, displayName string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// TaskTemplateRepository はタスクテンプレートの永続化インターフェース。
type TaskTemplateRepository interface {
	// FindByID は指定IDのタスクテンプレートを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.TaskTemplate, error)

	// ListAll は全タスクテンプレートをnumber昇順で返す。
	ListAll(ctx context.Context) ([]*model.TaskTemplate, error)

	// Count はタスクテンプレートの総数を返す。
	Count(ctx context.Context) (int, error)

	// CreateBatch は複数のタスクテンプレートを同一トランザクションで作成する。
	CreateBatch(ctx context.Context, templates []*model.TaskTemplate) error
}

// SubmissionRepository は提出物の永続化インターフェース。
// (task_id, user_id)のUNIQUE制約を前提とし、提出はアトミックなUPSERTで行う。
type SubmissionRepository interface {
	// FindByTaskAndUser はタスクIDとユーザーIDで提出物を検索する。見つからない場合はnilを返す。
	FindByTaskAndUser(ctx context.Context, taskID, userID string) (*model.Submission, error)

	// UpsertCompletion は提出をUPSERTする。既存レコードがある場合は証跡URLを上書きし、
	// status=pendingに戻してレビュー関連フィールドをクリアする。
	// find-then-writeではなく単一のINSERT ON CONFLICT文で実行され、
	// 同一ペアへの並行提出でも行が重複しない。
	UpsertCompletion(ctx context.Context, taskID, userID, evidenceURL string, completedAt time.Time) (*model.Submission, error)

	// ListByUserWithTasks は全タスクテンプレートを本人の提出物とLEFT JOINし、
	// number昇順で返す。未提出のタスクはSubmissionがnilになる。読み取り専用。
	ListByUserWithTasks(ctx context.Context, userID string) ([]model.TaskWithSubmission, error)

	// ListCompletedWithDetails は提出済み（completed_atが非NULL）の全提出物を
	// 提出者・タスク情報付きでcompleted_at降順で返す。
	ListCompletedWithDetails(ctx context.Context) ([]model.SubmissionDetail, error)

	// UpdateReview はレビュー結果を無条件に上書きする（last-write-wins）。
	// 対象の提出物が存在しない場合はnilを返し、新規行を作成しない。
	UpdateReview(ctx context.Context, taskID, userID string, status model.SubmissionStatus, feedback, reviewerID string, reviewedAt time.Time) (*model.Submission, error)
}
