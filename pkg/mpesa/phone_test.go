package mpesa

import (
	"testing"

	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "0712345678", want: "254712345678"},
		{input: "0112345678", want: "254112345678"},
		{input: "+254712345678", want: "254712345678"},
		{input: "254712345678", want: "254712345678"},
		{input: "0712 345 678", want: "254712345678"},
		{input: "712345678", want: "254712345678"},
		{input: "112345678", want: "254112345678"},
		{input: "", wantErr: true},
		{input: "12345", wantErr: true},
		{input: "07123456789", wantErr: true},
		{input: "0712-34-56x8", wantErr: true},
		{input: "441234567890", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizePhone(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizePhone(%q) expected error, got %q", tt.input, got)
				continue
			}
			if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
				t.Errorf("NormalizePhone(%q) error = %v, want validation code", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePhone(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
