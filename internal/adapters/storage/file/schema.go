package file

import "fmt"

const currentSchemaVersion = 1

// entrySchema is the TOML document written for every key.
type entrySchema struct {
	Version   int    `toml:"version"`
	Key       string `toml:"key"`
	Value     string `toml:"value"`
	UpdatedAt string `toml:"updated_at,omitempty"`
}

func (s *entrySchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s entrySchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported storage schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}
