package notify

import (
	"testing"

	"github.com/mercer/studio-failsafe/internal/airmeta"
)

func TestDecidePlan(t *testing.T) {
	tests := []struct {
		name string
		ctx  *airmeta.Context
		want Plan
	}{
		{
			name: "no context",
			ctx:  nil,
			want: Plan{},
		},
		{
			name: "unattended automation",
			ctx:  &airmeta.Context{Attended: false},
			want: Plan{},
		},
		{
			name: "unattended with stale contact is still skipped",
			ctx:  &airmeta.Context{Attended: false, ContactAddress: "x@y"},
			want: Plan{},
		},
		{
			name: "attended without contact falls back to broadcast",
			ctx:  &airmeta.Context{Attended: true},
			want: Plan{BroadFallback: true},
		},
		{
			name: "attended with contact goes direct, no fallback",
			ctx:  &airmeta.Context{Attended: true, ContactAddress: "x@y"},
			want: Plan{DirectContact: "x@y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecidePlan(tt.ctx)
			if got != tt.want {
				t.Errorf("DecidePlan() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
