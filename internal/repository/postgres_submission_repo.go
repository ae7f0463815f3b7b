package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fpachisa/marathon-training-app/internal/model"
)

// PostgresSubmissionRepo はPostgreSQLを使用した提出物リポジトリ。
type PostgresSubmissionRepo struct {
	db *sql.DB
}

// NewPostgresSubmissionRepo はPostgresSubmissionRepoを生成する。
func NewPostgresSubmissionRepo(db *sql.DB) *PostgresSubmissionRepo {
	return &PostgresSubmissionRepo{db: db}
}

// submissionColumns は提出物のSELECT句で使用するカラムリスト。
const submissionColumns = `id, task_id, user_id, completed, evidence_url, completed_at,
	 status, feedback, reviewed_at, reviewer_id, created_at, updated_at`

// scanSubmission は1行をmodel.Submissionに読み取る。
func scanSubmission(row interface {
	Scan(dest ...interface{}) error
}) (*model.Submission, error) {
	sub := &model.Submission{}
	var evidenceURL, feedback, reviewerID sql.NullString
	var completedAt, reviewedAt sql.NullTime
	var status string

	err := row.Scan(
		&sub.ID, &sub.TaskID, &sub.UserID, &sub.Completed,
		&evidenceURL, &completedAt,
		&status, &feedback, &reviewedAt, &reviewerID,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Status = model.SubmissionStatus(status)
	if evidenceURL.Valid {
		sub.EvidenceURL = evidenceURL.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		sub.CompletedAt = &t
	}
	if feedback.Valid {
		f := feedback.String
		sub.Feedback = &f
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sub.ReviewedAt = &t
	}
	if reviewerID.Valid {
		id := reviewerID.String
		sub.ReviewerID = &id
	}

	return sub, nil
}

// FindByTaskAndUser はタスクIDとユーザーIDで提出物を検索する。見つからない場合はnilを返す。
func (r *PostgresSubmissionRepo) FindByTaskAndUser(ctx context.Context, taskID, userID string) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE task_id = $1 AND user_id = $2`,
		taskID, userID,
	)

	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find submission: %w", err)
	}

	return sub, nil
}

// UpsertCompletion は提出を単一のINSERT ON CONFLICT文でUPSERTする。
// 既存レコードがある場合は証跡URLと提出時刻を上書きし、status=pendingへ戻して
// feedback/reviewed_at/reviewer_idをクリアする。UNIQUE(task_id, user_id)制約により
// 同一ペアへの並行提出でも行は1件のままで、後勝ちで確定する。
func (r *PostgresSubmissionRepo) UpsertCompletion(ctx context.Context, taskID, userID, evidenceURL string, completedAt time.Time) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO submissions
		     (id, task_id, user_id, completed, evidence_url, completed_at, status, created_at, updated_at)
		 VALUES ($1, $2, $3, TRUE, $4, $5, 'pending', $5, $5)
		 ON CONFLICT (task_id, user_id) DO UPDATE SET
		     completed = TRUE,
		     evidence_url = EXCLUDED.evidence_url,
		     completed_at = EXCLUDED.completed_at,
		     status = 'pending',
		     feedback = NULL,
		     reviewed_at = NULL,
		     reviewer_id = NULL,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+submissionColumns,
		uuid.New().String(), taskID, userID, evidenceURL, completedAt,
	)

	sub, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert submission: %w", err)
	}

	return sub, nil
}

// ListByUserWithTasks は全タスクテンプレートを本人の提出物とLEFT JOINし、number昇順で返す。
// 未提出のタスクはSubmissionがnilになる。状態を変更しない読み取り専用クエリ。
func (r *PostgresSubmissionRepo) ListByUserWithTasks(ctx context.Context, userID string) ([]model.TaskWithSubmission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.number, t.title, t.description, t.created_at,
		        s.id, s.task_id, s.user_id, s.completed, s.evidence_url, s.completed_at,
		        s.status, s.feedback, s.reviewed_at, s.reviewer_id, s.created_at, s.updated_at
		 FROM task_templates t
		 LEFT JOIN submissions s ON s.task_id = t.id AND s.user_id = $1
		 ORDER BY t.number ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks with submissions: %w", err)
	}
	defer rows.Close()

	var results []model.TaskWithSubmission
	for rows.Next() {
		var entry model.TaskWithSubmission
		var subID, subTaskID, subUserID, evidenceURL, status, feedback, reviewerID sql.NullString
		var completed sql.NullBool
		var completedAt, reviewedAt, subCreatedAt, subUpdatedAt sql.NullTime

		err := rows.Scan(
			&entry.Task.ID, &entry.Task.Number, &entry.Task.Title, &entry.Task.Description, &entry.Task.CreatedAt,
			&subID, &subTaskID, &subUserID, &completed, &evidenceURL, &completedAt,
			&status, &feedback, &reviewedAt, &reviewerID, &subCreatedAt, &subUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task with submission: %w", err)
		}

		if subID.Valid {
			sub := &model.Submission{
				ID:        subID.String,
				TaskID:    subTaskID.String,
				UserID:    subUserID.String,
				Completed: completed.Bool,
				Status:    model.SubmissionStatus(status.String),
				CreatedAt: subCreatedAt.Time,
				UpdatedAt: subUpdatedAt.Time,
			}
			if evidenceURL.Valid {
				sub.EvidenceURL = evidenceURL.String
			}
			if completedAt.Valid {
				t := completedAt.Time
				sub.CompletedAt = &t
			}
			if feedback.Valid {
				f := feedback.String
				sub.Feedback = &f
			}
			if reviewedAt.Valid {
				t := reviewedAt.Time
				sub.ReviewedAt = &t
			}
			if reviewerID.Valid {
				id := reviewerID.String
				sub.ReviewerID = &id
			}
			entry.Submission = sub
		}

		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks with submissions: %w", err)
	}

	return results, nil
}

// ListCompletedWithDetails は提出済みの全提出物を提出者・タスク情報付きで
// completed_at降順で返す。completed_atがNULLの行（未提出）は含まれない。
func (r *PostgresSubmissionRepo) ListCompletedWithDetails(ctx context.Context) ([]model.SubmissionDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.task_id, s.user_id, s.completed, s.evidence_url, s.completed_at,
		        s.status, s.feedback, s.reviewed_at, s.reviewer_id, s.created_at, s.updated_at,
		        u.display_name, u.email,
		        t.number, t.title, t.description
		 FROM submissions s
		 JOIN users u ON u.id = s.user_id
		 JOIN task_templates t ON t.id = s.task_id
		 WHERE s.completed_at IS NOT NULL
		 ORDER BY s.completed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions with details: %w", err)
	}
	defer rows.Close()

	var results []model.SubmissionDetail
	for rows.Next() {
		var d model.SubmissionDetail
		var evidenceURL, feedback, reviewerID sql.NullString
		var completedAt, reviewedAt sql.NullTime
		var status string

		err := rows.Scan(
			&d.ID, &d.TaskID, &d.UserID, &d.Completed, &evidenceURL, &completedAt,
			&status, &feedback, &reviewedAt, &reviewerID, &d.CreatedAt, &d.UpdatedAt,
			&d.UserDisplayName, &d.UserEmail,
			&d.TaskNumber, &d.TaskTitle, &d.TaskDescription,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission detail: %w", err)
		}

		d.Status = model.SubmissionStatus(status)
		if evidenceURL.Valid {
			d.EvidenceURL = evidenceURL.String
		}
		if completedAt.Valid {
			t := completedAt.Time
			d.CompletedAt = &t
		}
		if feedback.Valid {
			f := feedback.String
			d.Feedback = &f
		}
		if reviewedAt.Valid {
			t := reviewedAt.Time
			d.ReviewedAt = &t
		}
		if reviewerID.Valid {
			id := reviewerID.String
			d.ReviewerID = &id
		}

		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submission details: %w", err)
	}

	return results, nil
}

// UpdateReview はレビュー結果を無条件に上書きする（last-write-wins）。
// 対象の提出物が存在しない場合はnilを返し、新規行を作成しない。
func (r *PostgresSubmissionRepo) UpdateReview(ctx context.Context, taskID, userID string, status model.SubmissionStatus, feedback, reviewerID string, reviewedAt time.Time) (*model.Submission, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE submissions SET
		     status = $3,
		     feedback = $4,
		     reviewed_at = $5,
		     reviewer_id = $6,
		     updated_at = $5
		 WHERE task_id = $1 AND user_id = $2
		 RETURNING `+submissionColumns,
		taskID, userID, string(status), feedback, reviewedAt, reviewerID,
	)

	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	return sub, nil
}

// compile-time interface check
var _ SubmissionRepository = (*PostgresSubmissionRepo)(nil)
