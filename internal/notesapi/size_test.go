package notesapi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
)

func TestParseStorageSize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int64
	}{
		{"total", `{"totalSizeBytes":123}`, 123},
		{"nested", `{"sizeInfo":{"bytes":4096}}`, 4096},
		{"total wins", `{"size":1,"totalSizeBytes":2}`, 2},
		{"size", `{"size":10}`, 10},
		{"bytes string", `{"bytes":"77"}`, 77},
		{"bytesUsed", `{"bytesUsed":5}`, 5},
		{"storageBytes", `{"storageBytes":6.0}`, 6},
		{"plain", `2048`, 2048},
		{"plain spaced", " 99 \n", 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStorageSize([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStorageSize_Errors(t *testing.T) {
	for _, body := range []string{`{"unrelatedField":1}`, `hello`, ``, `{"size":"abc"}`} {
		_, err := ParseStorageSize([]byte(body))
		require.Error(t, err, body)
		assert.True(t, errors.Is(err, apperr.ErrParse), body)
	}
}
