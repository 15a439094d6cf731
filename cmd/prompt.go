package cmd

import (
	"errors"
	"strings"

	"github.com/clarityhire/clarity/internal/secrets"

	"github.com/manifoldco/promptui"
)

const passwordEnv = "CLARITY_PASSWORD"

func promptText(label, def string) (string, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: def,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("value is required")
			}
			return nil
		},
	}
	value, err := p.Run()
	return strings.TrimSpace(value), err
}

func promptSecret(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("value is required")
			}
			return nil
		},
	}
	return p.Run()
}

// resolvePassword reads the password from a file or CLARITY_PASSWORD and
// asks for it interactively when neither is set.
func resolvePassword(file string) (string, error) {
	password, err := secrets.Load(secrets.Source{
		Name: "password",
		File: file,
		Env:  passwordEnv,
	})
	if err == nil {
		return password, nil
	}
	if strings.TrimSpace(file) != "" {
		return "", err
	}
	return promptSecret("Password")
}
