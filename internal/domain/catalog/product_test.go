package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{in: "physical", want: CategoryPhysical},
		{in: "BOOK", want: CategoryBook},
		{in: " Digital ", want: CategoryDigital},
		{in: "membership", want: CategoryMembership},
		{in: "service", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownCategory)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, string(tt.want), got.String())
		})
	}
}

func TestNewProduct(t *testing.T) {
	p, err := NewProduct("p-1", "Go in Action", "paperback", CategoryBook, 35)
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Equal(t, int64(35), p.Price)

	_, err = NewProduct("p-2", "Broken", "", CategoryBook, -1)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = NewProduct("", "No id", "", CategoryBook, 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = NewProduct("p-3", "Bad category", "", Category("service"), 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestDeactivated_LeavesOriginal(t *testing.T) {
	p, err := NewProduct("p-1", "Gym pass", "", CategoryMembership, 2900)
	require.NoError(t, err)

	off := p.Deactivated()
	assert.False(t, off.Active)
	assert.True(t, p.Active)
}
