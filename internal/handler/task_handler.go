package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fpachisa/marathon-training-app/internal/assetstore"
	"github.com/fpachisa/marathon-training-app/internal/metrics"
	"github.com/fpachisa/marathon-training-app/internal/middleware"
	"github.com/fpachisa/marathon-training-app/internal/model"
)

// uploadFieldName はmultipartフォームの証跡ファイルフィールド名。
const uploadFieldName = "screenshot"

// sniffLen はContent-Type判定に読み取る先頭バイト数（http.DetectContentTypeの仕様上512で十分）。
const sniffLen = 512

// allowedImageTypes はアップロードを許可する画像MIMEタイプ。
// 拡張子ではなくファイル内容のスニッフィング結果で判定する。
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// SubmissionServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type SubmissionServiceInterface interface {
	// RecordCompletion はタスク完了と証跡URLを記録する。
	RecordCompletion(ctx context.Context, taskID, userID, evidenceURL string) (*model.Submission, error)
	// ListForUser は全タスクを本人の提出状況付きで返す。
	ListForUser(ctx context.Context, userID string) ([]model.TaskWithSubmission, error)
}

// TaskHandler はタスク一覧と提出のHTTPハンドラー。
type TaskHandler struct {
	service       SubmissionServiceInterface
	store         assetstore.EvidenceStore
	collector     metrics.MetricsCollector
	maxUploadSize int64
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service SubmissionServiceInterface, store assetstore.EvidenceStore, collector metrics.MetricsCollector, maxUploadSize int64) *TaskHandler {
	return &TaskHandler{
		service:       service,
		store:         store,
		collector:     collector,
		maxUploadSize: maxUploadSize,
	}
}

// taskResponse はタスクと本人の提出状況のAPIレスポンス。
type taskResponse struct {
	ID          string              `json:"id"`
	Number      int                 `json:"number"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Submission  *submissionResponse `json:"submission"`
}

// submissionResponse は提出物のAPIレスポンス。
type submissionResponse struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"task_id"`
	UserID      string     `json:"user_id"`
	Completed   bool       `json:"completed"`
	EvidenceURL string     `json:"evidence_url,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      string     `json:"status"`
	Feedback    *string    `json:"feedback,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// ListTasks は全タスクを本人の提出状況付きで番号順に返す。
// GET /api/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	items, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]taskResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toTaskResponse(item))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CompleteTask は証跡スクリーンショット付きのタスク完了提出を処理する。
// multipart/form-dataのscreenshotフィールドから画像を受け取り、
// 内容のスニッフィングで画像タイプを検証してからストアに保存する。
// POST /api/tasks/{taskID}/complete
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "taskID")
	start := time.Now()

	// サイズ上限の強制。超過時はMultipartReaderがエラーを返す
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.collector.RecordUploadFailure("too_large")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUploadError("ファイルサイズが上限を超えているか、multipart形式が不正です"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		h.collector.RecordUploadFailure("missing_file")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUploadError("screenshotフィールドがありません"))
		return
	}
	defer file.Close()

	// 先頭512バイトで実際のContent-Typeを判定（拡張子・申告ヘッダーは信用しない）
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		h.collector.RecordUploadFailure("read_error")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUploadError("ファイルの読み取りに失敗しました"))
		return
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !allowedImageTypes[contentType] {
		h.collector.RecordUploadFailure("invalid_type")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUploadError("画像ファイルではありません: "+contentType))
		return
	}

	// スニッフィングで消費した先頭バイトを繋ぎ直してストアに渡す
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.collector.RecordUploadFailure("read_error")
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUploadError("ファイルの読み取りに失敗しました"))
		return
	}

	evidenceURL, err := h.store.Save(r.Context(), header.Filename, contentType, file)
	if err != nil {
		slog.Error("failed to store evidence",
			slog.String("task_id", taskID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		h.collector.RecordUploadFailure("store_error")
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewStorageFailureError())
		return
	}

	sub, err := h.service.RecordCompletion(r.Context(), taskID, userID, evidenceURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.collector.RecordUploadLatency(time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSubmissionResponse(sub))
}

// --- ヘルパー関数 ---

// toTaskResponse はmodel.TaskWithSubmissionからAPIレスポンスに変換する。
func toTaskResponse(item model.TaskWithSubmission) taskResponse {
	resp := taskResponse{
		ID:          item.Task.ID,
		Number:      item.Task.Number,
		Title:       item.Task.Title,
		Description: item.Task.Description,
	}
	if item.Submission != nil {
		sr := toSubmissionResponse(item.Submission)
		resp.Submission = &sr
	}
	return resp
}

// toSubmissionResponse はmodel.SubmissionからAPIレスポンスに変換する。
func toSubmissionResponse(sub *model.Submission) submissionResponse {
	return submissionResponse{
		ID:          sub.ID,
		TaskID:      sub.TaskID,
		UserID:      sub.UserID,
		Completed:   sub.Completed,
		EvidenceURL: sub.EvidenceURL,
		CompletedAt: sub.CompletedAt,
		Status:      string(sub.Status),
		Feedback:    sub.Feedback,
		ReviewedAt:  sub.ReviewedAt,
	}
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeTaskNotFound, model.ErrCodeSubmissionNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidUpload, model.ErrCodeInvalidStatus, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
