package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount_ExactMatch(t *testing.T) {
	items := []OrderItem{
		{ID: "bear-small", UnitPrice: 84900, Quantity: 1},
	}
	err := ValidateAmount(89800, items, 4900)
	assert.NoError(t, err)
}

func TestValidateAmount_WithinTolerance(t *testing.T) {
	items := []OrderItem{
		{ID: "bear-small", UnitPrice: 84900, Quantity: 1},
	}
	// computed = 89800, tolerance is inclusive at exactly 100
	assert.NoError(t, ValidateAmount(89700, items, 4900))
	assert.NoError(t, ValidateAmount(89900, items, 4900))
}

func TestValidateAmount_BeyondTolerance(t *testing.T) {
	items := []OrderItem{
		{ID: "bear-small", UnitPrice: 84900, Quantity: 1},
	}
	err := ValidateAmount(89699, items, 4900)
	require.Error(t, err)

	var mismatch *AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(89699), mismatch.Claimed)
	assert.Equal(t, int64(89800), mismatch.Computed)
}

func TestValidateAmount_MultipleQuantities(t *testing.T) {
	items := []OrderItem{
		{ID: "bear-small", UnitPrice: 84900, Quantity: 2},
		{ID: "ribbon", UnitPrice: 2500, Quantity: 3},
	}
	// 169800 + 7500 + 4900 = 182200
	assert.NoError(t, ValidateAmount(182200, items, 4900))
	assert.Error(t, ValidateAmount(182000, items, 4900))
}

func TestValidateAmount_NoShipping(t *testing.T) {
	items := []OrderItem{
		{ID: "bear-small", UnitPrice: 84900, Quantity: 1},
	}
	assert.NoError(t, ValidateAmount(84900, items, 0))
}
