package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRecordID_ValidAndInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		want  string
		errIs error
	}{
		{name: "empty", in: "", want: "", errIs: ErrInvalidMemoryRecordID},
		{name: "whitespace only", in: "   ", want: "", errIs: ErrInvalidMemoryRecordID},
		{name: "uuid", in: "3f6e2c2a-3b8e-4e3f-9d2a-9a3b9c1d2e3f", want: "3f6e2c2a-3b8e-4e3f-9d2a-9a3b9c1d2e3f", errIs: nil},
		{name: "trims surrounding space", in: "  rec-1  ", want: "rec-1", errIs: nil},
		{name: "dot", in: ".", want: "", errIs: ErrInvalidMemoryRecordID},
		{name: "dotdot", in: "..", want: "", errIs: ErrInvalidMemoryRecordID},
		{name: "slash", in: "a/b", want: "", errIs: ErrInvalidMemoryRecordID},
		{name: "backslash", in: `a\b`, want: "", errIs: ErrInvalidMemoryRecordID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MemoryRecordID(tt.in)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.errIs)
		})
	}
}
