package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name                         string
		page, size                   int
		wantPage, wantSize, wantFrom int
	}{
		{"defaults", 0, 0, 1, 20, 0},
		{"third page", 3, 10, 3, 10, 20},
		{"capped", 2, 500, 2, 100, 100},
		{"negative page", -4, 5, 1, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, s, from := Calculate(tt.page, tt.size, 20, 100)
			assert.Equal(t, tt.wantPage, p)
			assert.Equal(t, tt.wantSize, s)
			assert.Equal(t, tt.wantFrom, from)
		})
	}
}
