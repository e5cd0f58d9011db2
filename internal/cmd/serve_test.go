package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransports(t *testing.T) {
	t.Run("default set", func(t *testing.T) {
		enabled, err := parseTransports("usb,bluetooth")
		require.NoError(t, err)
		assert.True(t, enabled["usb"])
		assert.True(t, enabled["bluetooth"])
		assert.False(t, enabled["hidraw"])
	})

	t.Run("case and spacing ignored", func(t *testing.T) {
		enabled, err := parseTransports(" USB , Bluetooth ")
		require.NoError(t, err)
		assert.True(t, enabled["usb"])
		assert.True(t, enabled["bluetooth"])
	})

	t.Run("hidraw alongside bluetooth", func(t *testing.T) {
		enabled, err := parseTransports("hidraw,bluetooth")
		require.NoError(t, err)
		assert.True(t, enabled["hidraw"])
		assert.True(t, enabled["bluetooth"])
	})

	t.Run("hidraw excludes usb", func(t *testing.T) {
		_, err := parseTransports("usb,hidraw")
		require.ErrorContains(t, err, "claim the same devices")
	})

	t.Run("unknown transport", func(t *testing.T) {
		_, err := parseTransports("usb,ps5")
		require.ErrorContains(t, err, `unknown transport "ps5"`)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := parseTransports("")
		require.ErrorContains(t, err, "no transports enabled")
	})
}
