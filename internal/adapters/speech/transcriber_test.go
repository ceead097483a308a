package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTranscript(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "strips segment timestamps",
			raw:  "[00:00.000 --> 00:02.000] Hello world\n[00:02.000 --> 00:04.000] second line",
			want: "Hello world second line",
		},
		{
			name: "strips timestamps without millis",
			raw:  "[02:40 --> 02:42] some speech",
			want: "some speech",
		},
		{
			name: "strips bare timecodes",
			raw:  "[01:02:03] intro\n[12:34] more",
			want: "intro more",
		},
		{
			name: "drops empty lines",
			raw:  "first\n\n   \nsecond",
			want: "first second",
		},
		{
			name: "plain text untouched",
			raw:  "nothing to clean here",
			want: "nothing to clean here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTranscript(tt.raw))
		})
	}
}
