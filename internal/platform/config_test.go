package platform

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "QUEUE_BACKEND", "MAX_CONCURRENT_CALLS", "WORKER_CONCURRENCY", "VIDEO_RETENTION_HOURS", "OUTPUT_DIR", "TEXT_PROVIDER"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" || cfg.QueueBackend != QueueBackendRedis {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxConcurrentCalls != 8 || cfg.WorkerConcurrency != 2 {
		t.Errorf("unexpected concurrency defaults %d/%d", cfg.MaxConcurrentCalls, cfg.WorkerConcurrency)
	}
	if cfg.VideoRetention != 168*time.Hour || cfg.ExternalCallTimeout != 120*time.Second {
		t.Errorf("unexpected durations %v/%v", cfg.VideoRetention, cfg.ExternalCallTimeout)
	}
	if !filepath.IsAbs(cfg.OutputDir) {
		t.Errorf("output dir should be absolute, got %q", cfg.OutputDir)
	}
	if p := cfg.Providers(); p.TextProvider != "auto" || p.ImageModel != "gpt-image-1" || p.SpeechModel != "tts-1" {
		t.Errorf("unexpected provider config %+v", p)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("QUEUE_BACKEND", "rabbitmq")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("OUTPUT_DIR", "/srv/videos")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.QueueBackend != QueueBackendRabbitMQ || cfg.WorkerConcurrency != 4 || cfg.OutputDir != "/srv/videos" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_CALLS", "many")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected a parse error")
	}

	t.Setenv("MAX_CONCURRENT_CALLS", "")
	t.Setenv("QUEUE_BACKEND", "kafka")
	if _, err := LoadConfig(); err == nil {
		t.Error("expected an unsupported backend error")
	}
}
