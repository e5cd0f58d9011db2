// Package config defines the padmux command line surface. The CLI struct
// aggregates all commands and global flags; values are layered from config
// files (JSON/YAML/TOML), environment variables, and flags by kong.
package config

import (
	"github.com/padmux/padmux/internal/cmd"
)

// LogConfig holds the global logging flags shared by every command.
type LogConfig struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"PADMUX_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"PADMUX_LOG_FILE"`
	RawFile string `help:"Write raw report hexdumps to this file" env:"PADMUX_LOG_RAW_FILE"`
}

// CLI is the root of the padmux command tree.
type CLI struct {
	ConfigFile string    `name:"config" help:"Configuration file path (JSON, YAML, or TOML)" env:"PADMUX_CONFIG"`
	Log        LogConfig `embed:"" prefix:"log."`

	Serve     cmd.Serve         `cmd:"" help:"Run the device hub daemon"`
	Config    cmd.ConfigCommand `cmd:"" help:"Configuration file utilities"`
	Passwd    cmd.Passwd        `cmd:"" help:"Change the feed API password"`
	Install   cmd.Install       `cmd:"" help:"Install padmux as a systemd service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the padmux systemd service"`
}
