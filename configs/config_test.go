package configs

import (
	"testing"
	"time"
)

func TestDefaultConfigValidation(t *testing.T) {
	// 测试 DefaultConfig 可以通过验证（认证默认启用但无密钥，需补齐）
	cfg := DefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig validation failed: %v", err)
	}
}

func TestAuthConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  AuthConfig
		wantErr bool
	}{
		{
			name:    "disabled auth passes without secret",
			config:  AuthConfig{Enabled: false},
			wantErr: false,
		},
		{
			name:    "enabled auth requires secret",
			config:  AuthConfig{Enabled: true},
			wantErr: true,
		},
		{
			name:    "enabled auth with secret passes",
			config:  AuthConfig{Enabled: true, JWTSecret: "s3cret"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected wantErr=%v, got err=%v", tt.wantErr, err)
			}
		})
	}
}

func TestCacheConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  CacheConfig
		wantErr bool
	}{
		{
			name:    "disabled cache passes",
			config:  CacheConfig{Enabled: false},
			wantErr: false,
		},
		{
			name: "valid ttls pass",
			config: CacheConfig{
				Enabled:   true,
				HighTTL:   24 * time.Hour,
				MediumTTL: time.Hour,
			},
			wantErr: false,
		},
		{
			name: "zero high ttl fails",
			config: CacheConfig{
				Enabled:   true,
				MediumTTL: time.Hour,
			},
			wantErr: true,
		},
		{
			name: "high ttl shorter than medium fails",
			config: CacheConfig{
				Enabled:   true,
				HighTTL:   time.Minute,
				MediumTTL: time.Hour,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected wantErr=%v, got err=%v", tt.wantErr, err)
			}
		})
	}
}

func TestRateLimitConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  RateLimitConfig
		wantErr bool
	}{
		{
			name: "valid config passes",
			config: RateLimitConfig{
				RequestsPerMinute: 100,
				Burst:             10,
				IdleWindow:        10 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "zero rate fails",
			config: RateLimitConfig{
				Burst:      10,
				IdleWindow: 10 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "zero burst fails",
			config: RateLimitConfig{
				RequestsPerMinute: 100,
				IdleWindow:        10 * time.Minute,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected wantErr=%v, got err=%v", tt.wantErr, err)
			}
		})
	}
}

func TestLLMConfigValidation(t *testing.T) {
	valid := LLMConfig{
		Model:           "claude-sonnet-4-5-20250929",
		MaxTokens:       500,
		Timeout:         8 * time.Second,
		ConfidenceFloor: 0.7,
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("valid llm config failed: %v", err)
	}

	missingModel := valid
	missingModel.Model = ""
	if err := missingModel.Validate(); err == nil {
		t.Errorf("expected error for missing model")
	}

	badFloor := valid
	badFloor.ConfidenceFloor = 1.5
	if err := badFloor.Validate(); err == nil {
		t.Errorf("expected error for confidence_floor > 1")
	}
}
