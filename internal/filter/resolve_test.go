package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewDefaultRegistry(nil)

	tests := []struct {
		term   string
		wantID string
		wantOK bool
	}{
		{"hide-basement", IDHideBasement, true},
		{"  HIDE-HIGH-FLOOR ", IDHideHighFloor, true},
		{"반지하 및 지하층", IDHideBasement, true},
		{"저층", IDHideLowFloor, true},
		{"high-floor", IDHideHighFloor, true},
		{"basement", IDHideBasement, true},
		{"지하", IDHideBasement, true},
		{"Low", IDHideLowFloor, true},
		{"중층", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			id, ok := r.Resolve(tt.term)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
