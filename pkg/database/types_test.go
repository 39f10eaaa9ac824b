package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArrayScan(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected StringArray
	}{
		{"json array", []byte(`["pad","bass"]`), StringArray{"pad", "bass"}},
		{"json array as string", `["arp"]`, StringArray{"arp"}},
		{"plain value treated as single item", "pad", StringArray{"pad"}},
		{"empty string", "", StringArray{}},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a StringArray
			require.NoError(t, a.Scan(tt.input))
			assert.Equal(t, tt.expected, a)
		})
	}
}

func TestStringArrayValue(t *testing.T) {
	v, err := StringArray{"pad", "bass"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["pad","bass"]`, v)

	v, err = StringArray(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestInt64ArrayScan(t *testing.T) {
	var a Int64Array
	require.NoError(t, a.Scan([]byte(`[1717243200,1717243260]`)))
	assert.Equal(t, Int64Array{1717243200, 1717243260}, a)

	var empty Int64Array
	require.NoError(t, empty.Scan("  "))
	assert.Nil(t, empty)

	var fromNil Int64Array
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}

func TestInt64ArrayValue(t *testing.T) {
	v, err := Int64Array{5, 6}.Value()
	require.NoError(t, err)
	assert.Equal(t, "[5,6]", v)

	v, err = Int64Array(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestScanRejectsUnsupportedType(t *testing.T) {
	var s StringArray
	assert.Error(t, s.Scan(42))

	var i Int64Array
	assert.Error(t, i.Scan(42))
}
