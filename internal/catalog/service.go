// Package catalog はトレーニングタスクカタログの管理を提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fpachisa/marathon-training-app/internal/model"
	"github.com/fpachisa/marathon-training-app/internal/repository"
)

// defaultTask はシード投入用のタスク定義。
type defaultTask struct {
	number      int
	title       string
	description string
}

// defaultTasks はマラソントレーニングプログラムの標準タスク一覧。
var defaultTasks = []defaultTask{
	{1, "5K Training Run", "Complete a 5K training run at comfortable pace"},
	{2, "Interval Training", "Complete 6x400m interval training"},
	{3, "Long Run", "Complete a 10K long run"},
	{4, "Recovery Run", "30-minute easy recovery run"},
	{5, "Tempo Run", "25-minute tempo run at half marathon pace"},
	{6, "Hill Training", "Complete 6 hill repeats"},
	{7, "Distance Run", "Complete a 15K run"},
	{8, "Speed Work", "8x200m sprint intervals"},
	{9, "Peak Long Run", "Complete an 18K run"},
	{10, "Final Preparation", "10K run at race pace"},
}

// Service はタスクカタログに関するビジネスロジックを提供する。
type Service struct {
	taskRepo repository.TaskTemplateRepository
}

// NewService はServiceを生成する。
func NewService(taskRepo repository.TaskTemplateRepository) *Service {
	return &Service{taskRepo: taskRepo}
}

// ListAll は全タスクテンプレートを番号順で取得する。
func (s *Service) ListAll(ctx context.Context) ([]*model.TaskTemplate, error) {
	tasks, err := s.taskRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list task templates: %w", err)
	}
	return tasks, nil
}

// FindByID はタスクテンプレートをIDで取得する。存在しない場合はnilを返す。
func (s *Service) FindByID(ctx context.Context, taskID string) (*model.TaskTemplate, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task template: %w", err)
	}
	return task, nil
}

// SeedDefaults は標準タスク一覧を投入する。カタログが空の場合のみ投入し、
// 既にタスクが存在する場合は何もしない（冪等）。投入した件数を返す。
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.taskRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count task templates: %w", err)
	}
	if count > 0 {
		slog.Info("task catalog already seeded, skipping", slog.Int("existing", count))
		return 0, nil
	}

	now := time.Now()
	tasks := make([]*model.TaskTemplate, 0, len(defaultTasks))
	for _, dt := range defaultTasks {
		tasks = append(tasks, &model.TaskTemplate{
			ID:          uuid.New().String(),
			Number:      dt.number,
			Title:       dt.title,
			Description: dt.description,
			CreatedAt:   now,
		})
	}

	if err := s.taskRepo.CreateBatch(ctx, tasks); err != nil {
		return 0, fmt.Errorf("failed to seed task templates: %w", err)
	}

	slog.Info("task catalog seeded", slog.Int("created", len(tasks)))
	return len(tasks), nil
}
