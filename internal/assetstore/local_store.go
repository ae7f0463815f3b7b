package assetstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore はローカルディスクに証跡ファイルを保存する実装。
// ファイル名の衝突を避けるため、タイムスタンププレフィックスを付与する。
type LocalStore struct {
	dir string
	// nowFunc はテストで時刻を固定するためのフック
	nowFunc func() time.Time
}

// NewLocalStore はLocalStoreを生成する。保存先ディレクトリが存在しない場合は作成する。
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		nowFunc: time.Now,
	}, nil
}

// Save はファイルをディスクに書き込み、/uploads/配下の相対URLを返す。
func (s *LocalStore) Save(ctx context.Context, filename string, contentType string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d-%s", s.nowFunc().UnixMilli(), sanitizeFilename(filename))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create evidence file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		// 書き込み途中で失敗した場合は中途半端なファイルを残さない
		os.Remove(path)
		return "", fmt.Errorf("failed to write evidence file: %w", err)
	}

	return "/uploads/" + name, nil
}

// Dir は保存先ディレクトリを返す。静的配信のルート設定に使用する。
func (s *LocalStore) Dir() string {
	return s.dir
}

// sanitizeFilename はパストラバーサルや不正な文字を除去したファイル名を返す。
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "evidence"
	}
	return b.String()
}

// compile-time interface check
var _ EvidenceStore = (*LocalStore)(nil)
