package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"taxoncore/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests("taxonomy")
	if s.Driver() != core.DriverS3 || s.Bucket() != "taxonomy" {
		t.Fatalf("unexpected store %s/%s", s.Driver(), s.Bucket())
	}
	body := "9606|Homo sapiens|Homo sapiens|Homo|Hominidae|Primates|Mammalia|Chordata|Animalia|Eukaryota|\n"
	if _, err := s.Put(ctx, "ncbi/lineage.dmp", strings.NewReader(body), core.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "ncbi/lineage.dmp", strings.NewReader(body), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	info, rc, err := s.Get(ctx, "ncbi/lineage.dmp")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != body || info.Size != int64(len(body)) || info.ETag != "etag" {
		t.Fatalf("unexpected object %+v %q", info, got)
	}
	head, err := s.Head(ctx, "ncbi/lineage.dmp")
	if err != nil || head.ETag != "etag" || head.ContentType != "text/plain" {
		t.Fatalf("head lost response headers: %+v %v", head, err)
	}
	list, err := s.List(ctx, "ncbi/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "ncbi/lineage.dmp" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestMockStoreNotFound(t *testing.T) {
	s := NewMockForTests("taxonomy")
	if _, _, err := s.Get(context.Background(), "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(context.Background(), "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected bucket error")
	}
}
