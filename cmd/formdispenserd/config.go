package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mazrean/formdispenser"
	yaml "gopkg.in/yaml.v3"
)

// Size is a byte count written as a plain number or with a KB, MB or GB
// suffix. "unlimited" and -1 disable the limit.
type Size formdispenser.DataSize

func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "UNLIMITED" {
		return Size(formdispenser.Unlimited), nil
	}

	unit := formdispenser.DataSize(1)
	for _, u := range []struct {
		suffix string
		size   formdispenser.DataSize
	}{
		{"GB", formdispenser.GB},
		{"MB", formdispenser.MB},
		{"KB", formdispenser.KB},
		{"B", 1},
	} {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			unit = u.size
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		if n == formdispenser.Unlimited && unit == 1 {
			return Size(formdispenser.Unlimited), nil
		}
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}

	return Size(formdispenser.DataSize(n) * unit), nil
}

func (s *Size) UnmarshalText(b []byte) error {
	v, err := ParseSize(string(b))
	if err != nil {
		return err
	}
	*s = v

	return nil
}

func (s *Size) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: size must be a scalar", n.Line)
	}

	return s.UnmarshalText([]byte(n.Value))
}

// Config is the optional YAML configuration file. Values that are set
// override the command line.
type Config struct {
	UploadDir string `yaml:"upload_dir"`
	MaxBytes  *Size  `yaml:"max_bytes"`
	MaxParts  *int   `yaml:"max_parts"`
	// MaxFileSize limits each stored file.
	MaxFileSize *Size `yaml:"max_file_size"`
}

func LoadConfigFromYAML(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func LoadConfigFromYAMLFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return LoadConfigFromYAML(b)
}
