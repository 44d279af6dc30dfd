package model

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name     string
		url      *string
		fileKey  *string
		wantKind PayloadKind
		wantErr  error
	}{
		{name: "url only", url: strPtr("http://example.com"), wantKind: PayloadURL},
		{name: "file only", fileKey: strPtr("2026/10/17/abc"), wantKind: PayloadFile},
		{name: "both", url: strPtr("http://example.com"), fileKey: strPtr("k"), wantErr: ErrPayloadBoth},
		{name: "neither", wantErr: ErrPayloadMissing},
		{name: "empty strings count as absent", url: strPtr(""), fileKey: strPtr(""), wantErr: ErrPayloadMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload(tt.url, tt.fileKey, "report.pdf", 42)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodePayload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if p.Kind() != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", p.Kind(), tt.wantKind)
			}
		})
	}
}

func TestEncodePayload(t *testing.T) {
	url, key, _, _ := EncodePayload(URLPayload{URL: "http://example.com"})
	if url == nil || *url != "http://example.com" || key != nil {
		t.Errorf("EncodePayload(URL) = (%v, %v), want url only", url, key)
	}

	url, key, name, size := EncodePayload(FilePayload{Key: "k1", Name: "a.txt", Size: 3})
	if url != nil || key == nil || *key != "k1" || name != "a.txt" || size != 3 {
		t.Errorf("EncodePayload(File) = (%v, %v, %q, %d), want file only", url, key, name, size)
	}
}

func TestItem_ActiveAt(t *testing.T) {
	created := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	item := &Item{CreatedAt: created, Payload: URLPayload{URL: "http://example.com"}}
	lifetime := 24 * time.Hour

	if !item.ActiveAt(created.Add(lifetime-time.Nanosecond), lifetime) {
		t.Error("item should be active just before the lifetime boundary")
	}
	if !item.ActiveAt(created.Add(lifetime), lifetime) {
		t.Error("item should be active exactly at the lifetime boundary")
	}
	if item.ActiveAt(created.Add(lifetime+time.Nanosecond), lifetime) {
		t.Error("item should be expired just after the lifetime boundary")
	}
}

func TestItem_String(t *testing.T) {
	link := &Item{UUID: "u1", Payload: URLPayload{URL: "http://example.com"}}
	file := &Item{UUID: "u2", Payload: FilePayload{Key: "k", Name: "notes.txt"}}

	if link.String() != "http://example.com" {
		t.Errorf("link.String() = %q", link.String())
	}
	if file.String() != "notes.txt" {
		t.Errorf("file.String() = %q", file.String())
	}
	if !link.IsLink() || file.IsLink() {
		t.Error("IsLink() misclassified payloads")
	}
}
