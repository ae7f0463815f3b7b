package assetstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type mockS3Client struct {
	putObjectFn func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.putObjectFn(ctx, params, optFns...)
}

var _ S3Client = (*mockS3Client)(nil)

func TestS3Store_SaveUploadsWithPrefixedKey(t *testing.T) {
	var gotBucket, gotKey, gotContentType, gotBody string

	client := &mockS3Client{
		putObjectFn: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			gotBucket = *params.Bucket
			gotKey = *params.Key
			gotContentType = *params.ContentType
			body, _ := io.ReadAll(params.Body)
			gotBody = string(body)
			return &s3.PutObjectOutput{}, nil
		},
	}

	store := NewS3Store(client, "evidence-bucket", "evidence", "https://cdn.example.com")
	store.nowFunc = func() time.Time { return time.UnixMilli(1700000000000) }

	url, err := store.Save(context.Background(), "run.png", "image/png", strings.NewReader("fake-png"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if gotBucket != "evidence-bucket" {
		t.Errorf("bucket = %q, want evidence-bucket", gotBucket)
	}
	if gotKey != "evidence/1700000000000-run.png" {
		t.Errorf("key = %q, want evidence/1700000000000-run.png", gotKey)
	}
	if gotContentType != "image/png" {
		t.Errorf("content type = %q, want image/png", gotContentType)
	}
	if gotBody != "fake-png" {
		t.Errorf("body = %q, want fake-png", gotBody)
	}
	if url != "https://cdn.example.com/evidence/1700000000000-run.png" {
		t.Errorf("url = %q", url)
	}
}

func TestS3Store_DefaultURLWithoutPublicURL(t *testing.T) {
	client := &mockS3Client{
		putObjectFn: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return &s3.PutObjectOutput{}, nil
		},
	}

	store := NewS3Store(client, "evidence-bucket", "", "")
	store.nowFunc = func() time.Time { return time.UnixMilli(1700000000000) }

	url, err := store.Save(context.Background(), "run.png", "image/png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := "https://evidence-bucket.s3.amazonaws.com/1700000000000-run.png"
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestS3Store_PutObjectError(t *testing.T) {
	client := &mockS3Client{
		putObjectFn: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}

	store := NewS3Store(client, "evidence-bucket", "evidence", "")

	if _, err := store.Save(context.Background(), "run.png", "image/png", strings.NewReader("x")); err == nil {
		t.Fatal("expected error when PutObject fails")
	}
}
