package progress_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-learn/core/progress"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		field   progress.Field
		raw     interface{}
		want    progress.Value
		wantErr error
	}{
		{name: "score", field: progress.FieldBestScore, raw: 87.5, want: progress.Score(87.5)},
		{name: "flag", field: progress.FieldPassed, raw: true, want: progress.Flag(true)},
		{name: "count", field: progress.FieldAttempts, raw: float64(3), want: progress.Count(3)},
		{name: "fractional count", field: progress.FieldAttempts, raw: 2.5, wantErr: progress.ErrFieldMismatch},
		{name: "flag as number", field: progress.FieldCompleted, raw: float64(1), wantErr: progress.ErrFieldMismatch},
		{name: "score as string", field: progress.FieldBestScore, raw: "80", wantErr: progress.ErrFieldMismatch},
		{name: "unknown field", field: progress.Field("version"), raw: float64(1), wantErr: progress.ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := progress.ParseValue(tt.field, tt.raw)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}
