package objstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 stores objects in a map.
type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[*input.Key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	content, ok := f.objects[*input.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(content))}, nil
}

func newTestArchive() (*Archive, *fakeS3) {
	fake := &fakeS3{}
	return &Archive{client: fake, bucket: "test-bucket", key: defaultLogKey}, fake
}

func TestAppendAndLines(t *testing.T) {
	archive, _ := newTestArchive()
	ctx := context.Background()

	if err := archive.Append(ctx, "user-1 | 2025-06-01 | 42 chars"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := archive.Append(ctx, "user-2 | 2025-06-02 | 7 chars"); err != nil {
		t.Fatalf("append second: %v", err)
	}

	lines, err := archive.Lines(ctx)
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0] != "user-1 | 2025-06-01 | 42 chars" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if lines[1] != "user-2 | 2025-06-02 | 7 chars" {
		t.Errorf("lines[1] = %q", lines[1])
	}
}

func TestLinesEmptyObject(t *testing.T) {
	archive, _ := newTestArchive()

	lines, err := archive.Lines(context.Background())
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("len(lines) = %d, want 0", len(lines))
	}
}

func TestAppendComposesObject(t *testing.T) {
	archive, fake := newTestArchive()
	ctx := context.Background()

	archive.Append(ctx, "first")
	archive.Append(ctx, "second")

	if got := fake.objects[defaultLogKey]; got != "first\nsecond\n" {
		t.Errorf("object = %q, want %q", got, "first\nsecond\n")
	}
}

func TestUnconfigured(t *testing.T) {
	archive := New(S3Config{})

	if archive.Configured() {
		t.Error("expected unconfigured archive")
	}
	if err := archive.Append(context.Background(), "line"); err == nil {
		t.Error("expected error from unconfigured append")
	}
	if _, err := archive.Lines(context.Background()); err == nil {
		t.Error("expected error from unconfigured lines")
	}
}
