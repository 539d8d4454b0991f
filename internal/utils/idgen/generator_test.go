package idgen

import (
	"strings"
	"testing"
)

func TestGenerateSecureID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		length     int
		wantErr    bool
		wantPrefix string
	}{
		{
			name:       "participant identity",
			prefix:     "client-user",
			length:     8,
			wantPrefix: "client-user_",
		},
		{
			name:       "call record ID",
			prefix:     "call",
			length:     16,
			wantPrefix: "call_",
		},
		{
			name:       "no prefix",
			prefix:     "",
			length:     12,
			wantPrefix: "",
		},
		{
			name:    "zero length",
			prefix:  "call",
			length:  0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSecureID(tt.prefix, tt.length)
			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateSecureID() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("GenerateSecureID() = %v, want prefix %v", got, tt.wantPrefix)
			}
			suffix := strings.TrimPrefix(got, tt.wantPrefix)
			if len(suffix) != tt.length {
				t.Errorf("GenerateSecureID() random part length = %v, want %v", len(suffix), tt.length)
			}
			for _, char := range suffix {
				if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
					t.Errorf("GenerateSecureID() contains invalid character: %c", char)
				}
			}
		})
	}
}

func TestGenerateSecureID_Distinct(t *testing.T) {
	const n = 1000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id, err := GenerateSecureID("client-user", 8)
		if err != nil {
			t.Fatalf("GenerateSecureID() error = %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate identity after %d generations: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}
