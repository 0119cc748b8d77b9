package storage

import (
	"io"
	"log"
	"testing"
)

func TestConfigEnabled(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected bool
	}{
		{"complete", Config{SecretID: "id", SecretKey: "key", Bucket: "b-123"}, true},
		{"missing secret", Config{SecretID: "id", Bucket: "b-123"}, false},
		{"missing bucket", Config{SecretID: "id", SecretKey: "key"}, false},
		{"empty", Config{}, false},
	}

	for _, tt := range tests {
		if got := tt.cfg.Enabled(); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, got)
		}
	}
}

func TestNewUnconfiguredReturnsNil(t *testing.T) {
	if c := New(Config{}, log.New(io.Discard, "", 0)); c != nil {
		t.Error("Expected nil client for incomplete config")
	}
}

func TestObjectURL(t *testing.T) {
	c := New(Config{SecretID: "id", SecretKey: "key", Bucket: "vids-123", Region: "ap-shanghai"}, log.New(io.Discard, "", 0))
	if c == nil {
		t.Fatal("Expected client")
	}

	got := c.ObjectURL("Creator/Title/video.mp4")
	expected := "https://vids-123.cos.ap-shanghai.myqcloud.com/Creator/Title/video.mp4"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestNewDefaultsRegion(t *testing.T) {
	c := New(Config{SecretID: "id", SecretKey: "key", Bucket: "vids-123"}, log.New(io.Discard, "", 0))
	if c == nil {
		t.Fatal("Expected client")
	}
	if c.Region() != DefaultRegion {
		t.Errorf("Expected default region %q, got %q", DefaultRegion, c.Region())
	}
}
