package assetstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client はS3操作のうち本パッケージが使用する範囲のインターフェース。
// テストでのモック差し替えを容易にするため最小限に絞る。
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store はS3バケットに証跡ファイルを保存する実装。
type S3Store struct {
	client    S3Client
	bucket    string
	keyPrefix string
	publicURL string
	nowFunc   func() time.Time
}

// NewS3Store はS3Storeを生成する。
// publicURLは保存後のURL組み立てに使うベースURL（例: CloudFrontディストリビューション）。
// 空の場合はS3の標準URL形式を使用する。
func NewS3Store(client S3Client, bucket, keyPrefix, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		nowFunc:   time.Now,
	}
}

// NewS3ClientFromEnv はAWS標準の認証チェーン（環境変数、IAMロール等）から
// S3クライアントを生成する。
func NewS3ClientFromEnv(ctx context.Context) (*s3.Client, error) {
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(sdkConfig), nil
}

// Save はファイルをS3にアップロードし、参照URLを返す。
func (s *S3Store) Save(ctx context.Context, filename string, contentType string, r io.Reader) (string, error) {
	key := fmt.Sprintf("%d-%s", s.nowFunc().UnixMilli(), sanitizeFilename(filename))
	if s.keyPrefix != "" {
		key = s.keyPrefix + "/" + key
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload evidence to S3: %w", err)
	}

	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
}

// compile-time interface check
var _ EvidenceStore = (*S3Store)(nil)
