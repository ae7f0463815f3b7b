package model

import "time"

// TaskTemplate はトレーニングタスクのテンプレートを表す。
// 管理者によるシード操作で作成される読み取り中心の参照データ。
// number は表示順序に使用され、UNIQUE制約で一意が保証される。
type TaskTemplate struct {
	ID          string
	Number      int
	Title       string
	Description string
	CreatedAt   time.Time
}
