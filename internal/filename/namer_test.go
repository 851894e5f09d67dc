package filename

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNamer_Next(t *testing.T) {
	n := Namer{
		Now:  func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
		Rand: bytes.NewReader(bytes.Repeat([]byte{0xab}, 32)),
	}

	first, err := n.Next("a.png")
	require.NoError(t, err)
	require.Equal(t, "20250102T030405000000000_abababab_a.png", first)
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"results/a.jpg", "results/a.jpg", false},
		{"/results/a.jpg", "results/a.jpg", false},
		{`results\a.jpg`, "results/a.jpg", false},
		{"results/../source/a.jpg", "source/a.jpg", false},
		{"../etc/passwd", "", true},
		{"results/../../etc/passwd", "", true},
		{"", "", true},
		{"..", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanKey(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadKey)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
