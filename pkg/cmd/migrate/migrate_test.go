package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareURLForDB(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain", "postgresql://u:p@host/db", "postgresql://u:p@host/db?sslmode=disable"},
		{"with params", "postgresql://u:p@host/db?x=1", "postgresql://u:p@host/db?x=1&sslmode=disable"},
		{"keeps sslmode", "postgresql://u:p@host/db?sslmode=require", "postgresql://u:p@host/db?sslmode=require"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, prepareURLForDB(tt.url))
		})
	}
}
