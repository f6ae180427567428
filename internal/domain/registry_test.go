// internal/domain/registry_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Registry Tests
// ==========================

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(PhoneName, newPhoneProfile()))
	require.NoError(t, r.Register(GenericName, newGenericProfile()))

	err := r.Register(PhoneName, newPhoneProfile())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Error(t, r.Register("", newGenericProfile()))
	assert.Error(t, r.Register("nil", nil))

	r.Seal()
	err = r.Register(LaptopName, newLaptopProfile())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sealed")

	assert.Equal(t, []string{PhoneName, GenericName}, r.Names())
}

func TestRegistry_Default(t *testing.T) {
	r := Default()
	assert.Same(t, r, Default())
	assert.Equal(t, []string{PhoneName, LaptopName, FashionName, BooksName, CosmeticsName, GenericName}, r.Names())

	for _, name := range r.Names() {
		p, ok := r.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, name, p.Name())
	}
	assert.Error(t, r.Register("late", newGenericProfile()))
}

func TestRegistry_AutoDetect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "phone", text: "cheapest iPhone 15 Pro 256GB", expected: PhoneName},
		{name: "galaxy", text: "samsung galaxy s24 ultra unlocked", expected: PhoneName},
		{name: "laptop", text: "best price macbook air m2 13 inch laptop", expected: LaptopName},
		{name: "fashion", text: "nike air max 90 running shoes size 10", expected: FashionName},
		{name: "book", text: "Project Hail Mary by Andy Weir paperback", expected: BooksName},
		{name: "cosmetics", text: "The Ordinary serum 30ml", expected: CosmeticsName},
		{name: "nothing scores", text: "gift for grandma", expected: GenericName},
	}

	r := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, det := r.AutoDetect(tt.text)
			assert.Equal(t, tt.expected, p.Name())
			assert.Equal(t, tt.expected, det.Profile)
			assert.NotNil(t, det.Evidence)
			if tt.expected == GenericName {
				assert.Zero(t, det.Score)
			} else {
				assert.Greater(t, det.Score, 0.0)
				assert.NotEmpty(t, det.Evidence)
			}
		})
	}
}

func TestRegistry_AutoDetect_TieKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("first", newGenericProfile()))
	require.NoError(t, r.Register("second", newGenericProfile()))

	p, det := r.AutoDetect("anything")
	assert.Equal(t, "first", det.Profile)
	assert.NotNil(t, p)
}

func TestRegistry_Resolve(t *testing.T) {
	r := Default()

	p, det := r.Resolve(PhoneName, "some laptop")
	assert.Equal(t, PhoneName, p.Name())
	assert.Nil(t, det, "explicit domain skips detection")

	p, det = r.Resolve("unregistered_domain", "iphone 15 pro")
	assert.Equal(t, PhoneName, p.Name())
	require.NotNil(t, det)
	assert.Greater(t, det.Score, 0.0)

	for _, name := range []string{"", "auto", "generic", " AUTO "} {
		p, det = r.Resolve(name, "macbook pro m3 laptop")
		assert.Equal(t, LaptopName, p.Name(), name)
		assert.NotNil(t, det, name)
	}
}
