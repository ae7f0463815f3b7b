package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fpachisa/marathon-training-app/internal/model"
)

// PostgresTaskTemplateRepo はPostgreSQLを使用したタスクテンプレートリポジトリ。
type PostgresTaskTemplateRepo struct {
	db *sql.DB
}

// NewPostgresTaskTemplateRepo はPostgresTaskTemplateRepoを生成する。
func NewPostgresTaskTemplateRepo(db *sql.DB) *PostgresTaskTemplateRepo {
	return &PostgresTaskTemplateRepo{db: db}
}

// FindByID は指定IDのタスクテンプレートを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskTemplateRepo) FindByID(ctx context.Context, id string) (*model.TaskTemplate, error) {
	task := &model.TaskTemplate{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, number, title, description, created_at
		 FROM task_templates WHERE id = $1`,
		id,
	).Scan(&task.ID, &task.Number, &task.Title, &task.Description, &task.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task template: %w", err)
	}

	return task, nil
}

// ListAll は全タスクテンプレートをnumber昇順で返す。
func (r *PostgresTaskTemplateRepo) ListAll(ctx context.Context) ([]*model.TaskTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, number, title, description, created_at
		 FROM task_templates ORDER BY number ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list task templates: %w", err)
	}
	defer rows.Close()

	var tasks []*model.TaskTemplate
	for rows.Next() {
		task := &model.TaskTemplate{}
		if err := rows.Scan(&task.ID, &task.Number, &task.Title, &task.Description, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task template: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task templates: %w", err)
	}

	return tasks, nil
}

// Count はタスクテンプレートの総数を返す。
func (r *PostgresTaskTemplateRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_templates`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count task templates: %w", err)
	}
	return count, nil
}

// CreateBatch は複数のタスクテンプレートを同一トランザクションで作成する。
// numberのUNIQUE制約に違反した場合はトランザクション全体がロールバックされる。
func (r *PostgresTaskTemplateRepo) CreateBatch(ctx context.Context, templates []*model.TaskTemplate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range templates {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO task_templates (id, number, title, description, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.Number, t.Title, t.Description, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert task template %d: %w", t.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ TaskTemplateRepository = (*PostgresTaskTemplateRepo)(nil)
