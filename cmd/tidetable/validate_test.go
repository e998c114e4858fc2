package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
)

func TestValidatePhasesAgreeOnDates(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		valid  bool
	}{
		{"plain", []string{"03", "15", "0531", "1.2"}, true},
		{"padded", []string{" 03", "15 ", "0531", "1.2"}, true},
		{"not a date", []string{"02", "29", "0531", "1.2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []domain.TableRow{domain.TableRowFromFields(tt.fields)}
			long, _, err := domain.NewReshaper(2023, nil).Reshape(rows)
			if tt.valid {
				require.NoError(t, err)
			}

			wide := validateWideRows(rows, 2023)
			parity := validateReshapeParity(rows, long, 2023, nil)
			assert.Equal(t, tt.valid, wide.passed(), wide.errors)
			assert.True(t, parity.passed(), parity.errors)
		})
	}
}
