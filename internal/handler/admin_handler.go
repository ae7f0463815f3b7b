package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fpachisa/marathon-training-app/internal/middleware"
	"github.com/fpachisa/marathon-training-app/internal/model"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	// ListAll は提出済みの全提出物を提出者・タスク情報付きで返す。
	ListAll(ctx context.Context) ([]model.SubmissionDetail, error)
	// Review はレビュー結果を記録する。
	Review(ctx context.Context, taskID, userID, status, feedback, reviewerID string) (*model.Submission, error)
}

// CatalogSeederInterface はタスクカタログのシード投入インターフェース。
type CatalogSeederInterface interface {
	// SeedDefaults は標準タスク一覧を投入し、投入した件数を返す。
	SeedDefaults(ctx context.Context) (int, error)
}

// AdminHandler は管理者向けAPIのHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
	seeder  CatalogSeederInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface, seeder CatalogSeederInterface) *AdminHandler {
	return &AdminHandler{
		service: service,
		seeder:  seeder,
	}
}

// reviewRequest はレビューリクエストのボディ。
type reviewRequest struct {
	TaskID   string `json:"task_id"`
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

// submissionDetailResponse は管理者向け提出物一覧のAPIレスポンス。
type submissionDetailResponse struct {
	submissionResponse
	UserName        string `json:"user_name"`
	UserEmail       string `json:"user_email"`
	TaskNumber      int    `json:"task_number"`
	TaskTitle       string `json:"task_title"`
	TaskDescription string `json:"task_description"`
}

// ListSubmissions は提出済みの全提出物を提出者・タスク情報付きで返す。
// GET /api/admin/submissions
func (h *AdminHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]submissionDetailResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toSubmissionDetailResponse(item))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ReviewSubmission は提出物のレビュー結果を記録する。
// POST /api/admin/submissions/review
func (h *AdminHandler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	reviewerID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.TaskID == "" || req.UserID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "task_idとuser_idは必須です。",
			Category: "validation",
			Action:   "task_idとuser_idを指定してください。",
		})
		return
	}

	sub, err := h.service.Review(r.Context(), req.TaskID, req.UserID, req.Status, req.Feedback, reviewerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSubmissionResponse(sub))
}

// SeedTasks は標準タスク一覧を投入する。カタログが空の場合のみ作用する（冪等）。
// POST /api/admin/tasks/seed
func (h *AdminHandler) SeedTasks(w http.ResponseWriter, r *http.Request) {
	created, err := h.seeder.SeedDefaults(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"created":   created,
		"seeded_at": time.Now().UTC(),
	})
}

// toSubmissionDetailResponse はmodel.SubmissionDetailからAPIレスポンスに変換する。
func toSubmissionDetailResponse(item model.SubmissionDetail) submissionDetailResponse {
	return submissionDetailResponse{
		submissionResponse: toSubmissionResponse(&item.Submission),
		UserName:           item.UserDisplayName,
		UserEmail:          item.UserEmail,
		TaskNumber:         item.TaskNumber,
		TaskTitle:          item.TaskTitle,
		TaskDescription:    item.TaskDescription,
	}
}
