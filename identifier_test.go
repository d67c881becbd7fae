package restquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDocumentIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"lowercase hex", "507f1f77bcf86cd799439011", true},
		{"uppercase hex", "507F1F77BCF86CD799439011", true},
		{"too short", "507f1f77bcf86cd79943901", false},
		{"too long", "507f1f77bcf86cd7994390111", false},
		{"non hex", "507f1f77bcf86cd79943901z", false},
		{"empty", "", false},
		{"number", 123, false},
		{"nil", nil, false},
		{"conditions", map[string]any{"fields": []any{"name"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDocumentIdentifier(tt.in))
		})
	}
}
