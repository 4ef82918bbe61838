package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// envOverrides lists the keys that can be overridden from the environment.
type envOverrides struct {
	User         string `env:"MAIL_USER"`
	Password     string `env:"MAIL_PASSWORD"`
	FromAddress  string `env:"EMAIL_FROM_ADDRESS"`
	FromPersonal string `env:"EMAIL_FROM_PERSONAL"`
	ReplyAddress string `env:"EMAIL_REPLY_ADDRESS"`
	SMTPHost     string `env:"MAIL_SMTP_HOST"`
	SMTPPort     string `env:"MAIL_SMTP_PORT"`
	Protocol     string `env:"MAIL_TRANSPORT_PROTOCOL"`
}

// LoadFile reads the configuration file at path, then overrides it with
// environment variables. Files ending in .yaml or .yml are parsed as YAML
// (nested maps become dotted keys); anything else is parsed as a Java-style
// properties file.
func LoadFile(path string) (Properties, error) {
	resolved, err := Locate(path)
	if err != nil {
		return Properties{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Properties{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var values map[string]string
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
		values, err = parseYAML(data)
	default:
		values, err = parseProperties(data)
	}
	if err != nil {
		return Properties{}, fmt.Errorf("failed to parse config file %s: %w", resolved, err)
	}

	if err := applyEnvVars(values); err != nil {
		return Properties{}, err
	}

	return Properties{values: values}, nil
}

// Locate resolves path to an existing file. Relative paths are tried against
// the working directory first and then the directory of the running executable.
func Locate(path string) (string, error) {
	if path == "" {
		return "", errors.New("config path is empty")
	}

	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) || filepath.IsAbs(path) {
		return "", fmt.Errorf("config file not found: %w", err)
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config file not found: %s: %w", path, fs.ErrNotExist)
}

func parseProperties(data []byte) (map[string]string, error) {
	loader := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}
	p, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

func parseYAML(data []byte) (map[string]string, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	values := make(map[string]string)
	flatten("", tree, values)
	return values, nil
}

// flatten turns {mail: {smtp: {host: x}}} into {"mail.smtp.host": "x"}.
func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// applyEnvVars overrides values with non-empty environment variables.
func applyEnvVars(values map[string]string) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	set := func(key, v string) {
		if v != "" {
			values[key] = v
		}
	}
	set(KeyUser, o.User)
	set(KeyPassword, o.Password)
	set(KeyFromAddress, o.FromAddress)
	set(KeyFromPersonal, o.FromPersonal)
	set(KeyReplyAddress, o.ReplyAddress)
	set(KeySMTPHost, o.SMTPHost)
	set(KeySMTPPort, o.SMTPPort)
	set(KeyProtocol, strings.ToLower(o.Protocol))
	return nil
}
