package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fpachisa/marathon-training-app/internal/model"
)

// UserFinder は認証済みユーザーの取得に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// AdminChecker はメールアドレスが管理者かどうかを判定するインターフェース。
// config.ConfigのIsAdminEmailが実装する。
type AdminChecker interface {
	IsAdminEmail(email string) bool
}

// NewAdminMiddleware は認証済みユーザーが管理者かどうかを検証するミドルウェアを返す。
// セッションミドルウェアの後段に配置する前提で、コンテキストのユーザーIDから
// ユーザーを取得し、そのメールアドレスが管理者リストに含まれなければ403を返す。
func NewAdminMiddleware(userFinder UserFinder, checker AdminChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			user, err := userFinder.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find user for admin check",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil || !checker.IsAdminEmail(user.Email) {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
