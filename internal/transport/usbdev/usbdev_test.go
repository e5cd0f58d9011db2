package usbdev

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/padmux/padmux/hid"
	"github.com/padmux/padmux/pad"
)

func TestModelFor(t *testing.T) {
	assert.Equal(t, pad.ModelDualShock3, modelFor(hid.ProductDualShock3))
	assert.Equal(t, pad.ModelDualShock4, modelFor(hid.ProductDualShock4))
	assert.Equal(t, pad.ModelDualShock4, modelFor(hid.ProductDualShock4V2))
	assert.EqualValues(t, 0, modelFor(0x0CDA), "unrelated product")
}
