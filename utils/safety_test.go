package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoseWarningsLargeBolus(t *testing.T) {
	warnings := DoseWarnings(16.5, nil, 70)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unusually large")
}

func TestDoseWarningsLowGlucose(t *testing.T) {
	low := 55.0
	warnings := DoseWarnings(3.0, &low, 70)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "treat the low")
}

func TestDoseWarningsBothConditions(t *testing.T) {
	low := 60.0
	warnings := DoseWarnings(20.0, &low, 70)
	assert.Len(t, warnings, 2)
}

func TestDoseWarningsNoneForNormalDose(t *testing.T) {
	fine := 110.0
	assert.Empty(t, DoseWarnings(4.5, &fine, 70))
	assert.Empty(t, DoseWarnings(MaxSingleBolus, nil, 70)) // at the cap, not above
}
