package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderComputesTotalServerSide(t *testing.T) {
	items := []Item{
		{ProductID: "p1", Quantity: 2, PriceAtPurchase: 100},
		{ProductID: "p2", Quantity: 1, PriceAtPurchase: 50},
	}

	o := NewOrder("o1", "TXN-1", "c1", items, "House 7, Road 3, Dhaka", "01700000000")

	assert.Equal(t, 250.0, o.TotalAmount)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, StatusPending, o.OrderStatus)
	assert.Len(t, o.Items, 2)
}

func TestMarkPaidOnlyFromPending(t *testing.T) {
	o := NewOrder("o1", "TXN-1", "c1", []Item{{ProductID: "p1", Quantity: 1, PriceAtPurchase: 10}}, "House 7, Road 3, Dhaka", "")

	require.NoError(t, o.MarkPaid())
	assert.Equal(t, PaymentSuccess, o.PaymentStatus)
	assert.Equal(t, StatusProcessing, o.OrderStatus)

	// Success is terminal.
	err := o.MarkPaid()
	assert.ErrorIs(t, err, ErrNotPending)
	err = o.MarkFailed()
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, PaymentSuccess, o.PaymentStatus)
}

func TestMarkFailedIsTerminal(t *testing.T) {
	o := NewOrder("o1", "TXN-1", "c1", []Item{{ProductID: "p1", Quantity: 1, PriceAtPurchase: 10}}, "House 7, Road 3, Dhaka", "")

	require.NoError(t, o.MarkFailed())
	assert.Equal(t, PaymentFailed, o.PaymentStatus)
	assert.Equal(t, StatusCancelled, o.OrderStatus)

	// A late success callback must not resurrect a failed order.
	err := o.MarkPaid()
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, PaymentFailed, o.PaymentStatus)
}

func TestPlacementInputValidate(t *testing.T) {
	tests := []struct {
		name   string
		in     PlacementInput
		fields []string
	}{
		{
			name: "valid",
			in: PlacementInput{
				Items:           []ItemInput{{ProductID: prodA, Quantity: 1}},
				ShippingAddress: "House 7, Road 3, Dhaka",
			},
		},
		{
			name:   "empty items",
			in:     PlacementInput{ShippingAddress: "House 7, Road 3, Dhaka"},
			fields: []string{"products"},
		},
		{
			name: "zero quantity and missing product id",
			in: PlacementInput{
				Items:           []ItemInput{{ProductID: prodA, Quantity: 0}, {Quantity: 2}},
				ShippingAddress: "House 7, Road 3, Dhaka",
			},
			fields: []string{"products[0].quantity", "products[1].product_id"},
		},
		{
			name: "malformed product id",
			in: PlacementInput{
				Items:           []ItemInput{{ProductID: "13; DROP TABLE products", Quantity: 1}},
				ShippingAddress: "House 7, Road 3, Dhaka",
			},
			fields: []string{"products[0].product_id"},
		},
		{
			name: "short address",
			in: PlacementInput{
				Items:           []ItemInput{{ProductID: prodA, Quantity: 1}},
				ShippingAddress: "Dhaka",
			},
			fields: []string{"shipping_address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.fields, verr.Fields)
		})
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled} {
		assert.True(t, ValidOrderStatus(s), s)
	}
	assert.False(t, ValidOrderStatus("Paid"))
	assert.False(t, ValidOrderStatus(""))
}
