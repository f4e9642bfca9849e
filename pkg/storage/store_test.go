package storage

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_ReadWrite(t *testing.T) {
	s := New(afero.NewMemMapFs())

	ok, err := s.Exists("ph_calibration.json")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Read("ph_calibration.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Write("ph_calibration.json", []byte(`{"a":1}`)))
	ok, err = s.Exists("/ph_calibration.json")
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := s.Read("ph_calibration.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))

	require.NoError(t, s.Write("ph_calibration.json", []byte(`{}`)))
	b, err = s.Read("ph_calibration.json")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

func TestFS_AppendRemove(t *testing.T) {
	s := New(afero.NewMemMapFs())

	require.NoError(t, s.Append("logs/cycles.log", []byte("a\n")))
	require.NoError(t, s.Append("logs/cycles.log", []byte("b\n")))

	b, err := s.Read("logs/cycles.log")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(b))

	require.NoError(t, s.Remove("logs/cycles.log"))
	require.NoError(t, s.Remove("logs/cycles.log"))

	ok, err := s.Exists("logs/cycles.log")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFS_List(t *testing.T) {
	s := New(afero.NewMemMapFs())
	require.NoError(t, s.Write("b.json", make([]byte, 1500)))
	require.NoError(t, s.Write("a.json", []byte("x")))
	require.NoError(t, s.Write("sub/c.json", []byte("x")))

	entries, err := s.List("/")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.json", entries[0].Name)
	assert.Equal(t, "b.json", entries[1].Name)
	assert.Equal(t, "1.5 KB", entries[1].HumanSize())
	assert.Equal(t, "sub/", entries[2].String())

	_, err = s.List("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEntry_HumanSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 bytes"},
		{999, "999 bytes"},
		{1000, "1.0 KB"},
		{2500000, "2.5 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Entry{Size: tt.size}.HumanSize())
	}
}
