package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"golang.org/x/term"

	"github.com/padmux/padmux/internal/configpaths"
	"github.com/padmux/padmux/internal/server/feed/auth"
)

// Passwd rewrites the feed API key file. The serve command reads the file
// on startup, so a restart picks the new password up.
type Passwd struct {
	Generate bool `help:"Generate a random password instead of prompting"`
}

// Run is called by Kong when the passwd command is executed.
func (p *Passwd) Run(logger *slog.Logger) error {
	keyFileDir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("failed to resolve key file path: %w", err)
	}
	keyFilePath := path.Join(keyFileDir, keyFileName)

	var pwd string
	if p.Generate {
		pwd, err = auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
	} else {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("stdin is not a terminal; use --generate")
		}
		fmt.Print("New feed API password (empty disables authentication): ")
		first, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Print("Repeat password: ")
		second, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if !bytes.Equal(first, second) {
			return errors.New("passwords do not match")
		}
		pwd = string(first)
	}

	if err := os.MkdirAll(keyFileDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config dir for key file: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(pwd), 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	switch {
	case p.Generate:
		logger.Info("Generated feed API password", "path", keyFilePath)
		logger.Info(pwd)
	case pwd == "":
		logger.Info("Feed API authentication disabled", "path", keyFilePath)
	default:
		logger.Info("Feed API password updated", "path", keyFilePath)
	}
	return nil
}
