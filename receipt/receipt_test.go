package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	r := New()
	assert.Equal(t, DefaultCustomerName, r.CustomerName)
	assert.NotNil(t, r.Items)
	assert.Empty(t, r.Items)
}

func TestAddressLines(t *testing.T) {
	r := Receipt{Address: "Av. Lima 123\nLima - Lima"}
	assert.Equal(t, []string{"Av. Lima 123", "Lima - Lima"}, r.AddressLines())
	assert.Nil(t, Receipt{}.AddressLines())
}

func TestFieldsFallsBackToPlaceholderCustomer(t *testing.T) {
	fields := Receipt{TaxID: "20123456789"}.Fields()
	assert.Equal(t, DefaultCustomerName, fields["customer_name"])
	assert.Equal(t, "20123456789", fields["tax_id"])
	assert.Equal(t, 0, fields["item_count"])
}

func TestValidate(t *testing.T) {
	ok := Receipt{Items: []Item{{Quantity: "2.00", UnitPrice: "1.50", Description: "Pan"}}}
	require.NoError(t, ok.Validate())

	noPrice := Receipt{Items: []Item{{Quantity: "1.00", Description: "Leche"}}}
	require.NoError(t, noPrice.Validate())

	empty := Receipt{Items: []Item{{Quantity: "1.00", Description: "  "}}}
	assert.Error(t, empty.Validate())

	badQty := Receipt{Items: []Item{{Quantity: "UND", Description: "Pan"}}}
	assert.Error(t, badQty.Validate())

	badPrice := Receipt{Items: []Item{{Quantity: "1.00", UnitPrice: "S/", Description: "Pan"}}}
	assert.Error(t, badPrice.Validate())

	// 数量必须整串是小数
	trailing := Receipt{Items: []Item{{Quantity: "2.00\u00a0UND", Description: "Pan"}}}
	assert.Error(t, trailing.Validate())
}
