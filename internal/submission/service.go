// Package submission は提出物の記録とレビューのビジネスロジックを提供する。
package submission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fpachisa/marathon-training-app/internal/metrics"
	"github.com/fpachisa/marathon-training-app/internal/model"
	"github.com/fpachisa/marathon-training-app/internal/notify"
	"github.com/fpachisa/marathon-training-app/internal/repository"
	"github.com/fpachisa/marathon-training-app/internal/security"
)

// Service は提出物に関するビジネスロジックを提供する。
type Service struct {
	submissionRepo repository.SubmissionRepository
	taskRepo       repository.TaskTemplateRepository
	userRepo       repository.UserRepository
	sanitizer      security.FeedbackSanitizerService
	notifier       notify.Notifier
	collector      metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	submissionRepo repository.SubmissionRepository,
	taskRepo repository.TaskTemplateRepository,
	userRepo repository.UserRepository,
	sanitizer security.FeedbackSanitizerService,
	notifier notify.Notifier,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		submissionRepo: submissionRepo,
		taskRepo:       taskRepo,
		userRepo:       userRepo,
		sanitizer:      sanitizer,
		notifier:       notifier,
		collector:      collector,
	}
}

// RecordCompletion はタスク完了と証跡URLを記録する。
// 同一(task, user)への再提出は既存レコードを上書きし、レビュー状態をpendingに戻す。
// 提出後、管理者への通知をベストエフォートで送信する。
func (s *Service) RecordCompletion(ctx context.Context, taskID, userID, evidenceURL string) (*model.Submission, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task template: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	sub, err := s.submissionRepo.UpsertCompletion(ctx, taskID, userID, evidenceURL, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert submission: %w", err)
	}

	s.collector.RecordSubmissionCreated()
	slog.Info("submission recorded",
		slog.String("task_id", taskID),
		slog.String("user_id", userID),
		slog.Int("task_number", task.Number),
	)

	if user, findErr := s.userRepo.FindByID(ctx, userID); findErr == nil && user != nil {
		s.notifier.SubmissionCreated(ctx, user, task, sub)
	}

	return sub, nil
}

// ListForUser は全タスクを本人の提出状況付きで番号順に返す。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]model.TaskWithSubmission, error) {
	items, err := s.submissionRepo.ListByUserWithTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks with submissions: %w", err)
	}
	return items, nil
}

// ListAll は提出済みの全提出物を提出者・タスク情報付きで返す。管理者向け。
func (s *Service) ListAll(ctx context.Context) ([]model.SubmissionDetail, error) {
	items, err := s.submissionRepo.ListCompletedWithDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions with details: %w", err)
	}
	return items, nil
}

// Review はレビュー結果を記録する。後勝ち（last-write-wins）で無条件に上書きする。
// statusはpending/approved/rejectedのいずれか。フィードバックはサニタイズして保存する。
// レビュー後、提出者への通知をベストエフォートで送信する。
func (s *Service) Review(ctx context.Context, taskID, userID, status, feedback, reviewerID string) (*model.Submission, error) {
	if !model.IsValidSubmissionStatus(status) {
		return nil, model.NewInvalidStatusError(status)
	}

	cleanFeedback := s.sanitizer.Sanitize(feedback)

	sub, err := s.submissionRepo.UpdateReview(
		ctx, taskID, userID,
		model.SubmissionStatus(status), cleanFeedback, reviewerID, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	if sub == nil {
		return nil, model.NewSubmissionNotFoundError(taskID, userID)
	}

	s.collector.RecordReview(status)
	slog.Info("submission reviewed",
		slog.String("task_id", taskID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("reviewer_id", reviewerID),
	)

	user, findErr := s.userRepo.FindByID(ctx, userID)
	task, taskErr := s.taskRepo.FindByID(ctx, taskID)
	if findErr == nil && user != nil && taskErr == nil && task != nil {
		s.notifier.SubmissionReviewed(ctx, user, task, sub)
	}

	return sub, nil
}
