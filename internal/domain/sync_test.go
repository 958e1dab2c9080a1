package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v int64) *int64 { return &v }

func TestNeedsRefresh(t *testing.T) {
	tests := []struct {
		name   string
		local  *int64
		remote *int64
		want   bool
	}{
		{name: "origin newer", local: ptr(100), remote: ptr(101), want: true},
		{name: "origin equal", local: ptr(100), remote: ptr(100), want: false},
		{name: "origin older", local: ptr(100), remote: ptr(99), want: false},
		{name: "origin without stamp", local: ptr(100), remote: nil, want: true},
		{name: "neither stamped", local: nil, remote: nil, want: true},
		{name: "local without stamp", local: nil, remote: ptr(100), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRefresh(tt.local, tt.remote))
		})
	}
}
