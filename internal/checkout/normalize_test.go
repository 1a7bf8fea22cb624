package checkout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOrders(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		codes       []string
		expectError bool
	}{
		{name: "Array", raw: `[{"order_code":"A-1"},{"order_code":"A-2"}]`, codes: []string{"A-1", "A-2"}},
		{name: "Single object", raw: `{"order_code":"A"}`, codes: []string{"A"}},
		{name: "Null", raw: `null`, codes: []string{}},
		{name: "Missing", raw: ``, codes: []string{}},
		{name: "Empty array", raw: ` [] `, codes: []string{}},
		{name: "Scalar", raw: `"A"`, expectError: true},
		{name: "Broken array", raw: `[{"order_code":`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := NormalizeOrders(json.RawMessage(tt.raw))

			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, orders)

			codes := make([]string, len(orders))
			for i, o := range orders {
				codes[i] = o.OrderCode
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}
