// Package assetstore は証跡スクリーンショットの保存先を抽象化する。
// ローカルディスク保存とS3保存の2つの実装を提供する。
package assetstore

import (
	"context"
	"io"
)

// EvidenceStore は証跡ファイルの保存インターフェース。
// 保存に成功した場合、クライアントが参照可能なURLを返す。
type EvidenceStore interface {
	Save(ctx context.Context, filename string, contentType string, r io.Reader) (string, error)
}
