package cmd

import (
	"testing"

	"github.com/valeger/automl/internal/errs"
)

func TestParseSecretArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "single pair",
			args: []string{"API_KEY=sk-123"},
			want: map[string]string{"API_KEY": "sk-123"},
		},
		{
			name: "multiple pairs",
			args: []string{"A=1", "B=2"},
			want: map[string]string{"A": "1", "B": "2"},
		},
		{
			name: "value containing equals sign",
			args: []string{"URL=https://x?a=b"},
			want: map[string]string{"URL": "https://x?a=b"},
		},
		{
			name:    "missing equals",
			args:    []string{"NOTAPAIR"},
			wantErr: true,
		},
		{
			name:    "empty key",
			args:    []string{"=value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSecretArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSecretArgs(%v) = %v, want error", tt.args, got)
				}
				if _, ok := errs.As(err); !ok {
					t.Errorf("expected a classified error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSecretArgs(%v) returned error %v", tt.args, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseSecretArgs(%v) = %v, want %v", tt.args, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("parseSecretArgs(%v)[%q] = %q, want %q", tt.args, k, got[k], v)
				}
			}
		})
	}
}
