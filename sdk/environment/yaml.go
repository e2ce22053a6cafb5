package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes the YAML file at path into cfg. Unknown keys are an error.
func LoadYAML(path string, cfg any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// Load fills cfg from the YAML file at path, when one is given and exists,
// then from the environment. Environment variables override file values and
// defaults only fill what both left empty.
func Load(prefix, path string, cfg any) error {
	if path != "" {
		err := LoadYAML(path, cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return ParseEnvTags(prefix, cfg)
}
