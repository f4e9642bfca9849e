package sensor

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRaw struct {
	mock.Mock
}

func (m *mockRaw) ReadRaw() (int32, error) {
	a := m.Called()
	return a.Get(0).(int32), a.Error(1)
}

func TestAnalog_Voltage(t *testing.T) {
	tests := []struct {
		description string
		reference   float64
		resolution  float64
		raw         int32
		err         error
		expect      float64
	}{
		{
			description: "board adc full scale",
			reference:   3.3,
			resolution:  65536,
			raw:         32768,
			expect:      1.65,
		},
		{
			description: "ads1115 defaults",
			raw:         16384,
			expect:      2.048,
		},
		{
			description: "read failure",
			raw:         0,
			err:         errors.New("i2c nack"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			m := new(mockRaw)
			m.On("ReadRaw").Return(tc.raw, tc.err).Once()

			a := NewAnalog("ph", m, tc.reference, tc.resolution)
			v, err := a.Voltage()
			if tc.err != nil {
				var rerr *ReadError
				assert.True(errors.As(err, &rerr))
				assert.Equal("ph", rerr.Sensor)
				assert.ErrorIs(err, tc.err)
			} else {
				assert.NoError(err)
				assert.InDelta(tc.expect, v, 1e-9)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestParseW1Slave(t *testing.T) {
	tests := []struct {
		description string
		in          string
		expect      float64
		expectErr   bool
	}{
		{
			description: "valid reading",
			in:          "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=23125\n",
			expect:      23.125,
		},
		{
			description: "below zero",
			in:          "5e ff 4b 46 7f ff 02 10 2c : crc=2c YES\n5e ff 4b 46 7f ff 02 10 2c t=-10125\n",
			expect:      -10.125,
		},
		{
			description: "crc mismatch",
			in:          "72 01 4b 46 7f ff 0e 10 57 : crc=57 NO\n72 01 4b 46 7f ff 0e 10 57 t=23125\n",
			expectErr:   true,
		},
		{
			description: "power on reset",
			in:          "50 05 4b 46 7f ff 0c 10 1c : crc=1c YES\n50 05 4b 46 7f ff 0c 10 1c t=85000\n",
			expectErr:   true,
		},
		{
			description: "truncated",
			in:          "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n",
			expectErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			got, err := parseW1Slave([]byte(tc.in))
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.expect, got, 1e-9)
		})
	}
}

func TestTemperature_Read(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, W1Dir+"/w1_bus_master1/name", []byte("w1_bus_master1"), 0644))
	require.NoError(t, afero.WriteFile(fs, W1Dir+"/28-0000075e2f3a/w1_slave",
		[]byte("72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=23125\n"), 0644))

	temp := NewTemperature(fs, "", "")
	v, err := temp.Read()
	require.NoError(t, err)
	assert.InDelta(t, 23.125, v, 1e-9)

	missing := NewTemperature(fs, "", "28-ffffffffffff")
	_, err = missing.Read()
	var rerr *ReadError
	assert.True(t, errors.As(err, &rerr))
	assert.Equal(t, "temperature", rerr.Sensor)

	empty := NewTemperature(afero.NewMemMapFs(), "/nowhere", "")
	_, err = empty.Read()
	assert.True(t, errors.As(err, &rerr))
}

func TestSimulated(t *testing.T) {
	a := NewSimulated(10, 2, 0.5, 1)
	b := NewSimulated(10, 2, 0.5, 1)

	for i := 0; i < 200; i++ {
		va, err := a.Read()
		require.NoError(t, err)
		vb, _ := b.Read()
		assert.Equal(t, va, vb)
		assert.InDelta(t, 10, va, 2.5)
	}

	raw, err := NewSimulated(12000, 0, 0, 1).ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, int32(12000), raw)
}
