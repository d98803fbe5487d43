package sqlguard

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "zero config is valid",
			cfg:  Config{},
		},
		{
			name: "populated config is valid",
			cfg: Config{
				Validation: ValidationConfig{MaxQueryLength: 5000, MaxResultLimit: 1000},
				RateLimit:  RateLimitConfig{MaxRequests: 50, Window: 30 * time.Second, MaxIdentities: 500},
				Audit:      AuditConfig{FilePath: "audit.log", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 7},
			},
		},
		{
			name:    "negative max query length",
			cfg:     Config{Validation: ValidationConfig{MaxQueryLength: -1}},
			wantErr: "max query length",
		},
		{
			name:    "negative max result limit",
			cfg:     Config{Validation: ValidationConfig{MaxResultLimit: -10}},
			wantErr: "max result limit",
		},
		{
			name:    "negative rate limit requests",
			cfg:     Config{RateLimit: RateLimitConfig{MaxRequests: -5}},
			wantErr: "max requests",
		},
		{
			name:    "negative rate limit window",
			cfg:     Config{RateLimit: RateLimitConfig{Window: -time.Second}},
			wantErr: "window",
		},
		{
			name:    "negative max identities",
			cfg:     Config{RateLimit: RateLimitConfig{MaxIdentities: -1}},
			wantErr: "max identities",
		},
		{
			name:    "negative audit size",
			cfg:     Config{Audit: AuditConfig{MaxSizeMB: -1}},
			wantErr: "audit max size",
		},
		{
			name:    "negative audit backups",
			cfg:     Config{Audit: AuditConfig{MaxBackups: -2}},
			wantErr: "audit max backups",
		},
		{
			name:    "negative audit age",
			cfg:     Config{Audit: AuditConfig{MaxAgeDays: -30}},
			wantErr: "audit max age",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
