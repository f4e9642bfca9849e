package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wqlog/wqlog/pkg/config"
)

func TestParseSensorArg(t *testing.T) {
	name, err := parseSensorArg([]string{"PH"})
	require.NoError(t, err)
	assert.Equal(t, "ph", name)

	_, err = parseSensorArg([]string{"turbidity"})
	assert.Error(t, err)
	_, err = parseSensorArg(nil)
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	c := *config.Default()
	c.ServiceAccount.PrivateKey = "1, 65537, 3, 5, 7"

	r := redacted(c)
	assert.Equal(t, "<redacted>", r.ServiceAccount.PrivateKey)
	assert.Equal(t, "1, 65537, 3, 5, 7", c.ServiceAccount.PrivateKey)
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()
	for _, path := range [][]string{
		{"daemon"},
		{"status"},
		{"cycle"},
		{"calibrate"},
		{"calibration", "show"},
		{"sheet", "read"},
		{"sheet", "write"},
		{"storage", "ls"},
		{"config", "init"},
		{"install"},
		{"uninstall"},
		{"version"},
	} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}

	status, _, err := cmd.Find([]string{"status"})
	require.NoError(t, err)
	assert.NotEmpty(t, status.Annotations[annotationDaemonClient])
}
