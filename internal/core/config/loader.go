package config

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/drgpu/configs"
)

// DefaultProfile is used when the caller names no GPU.
const DefaultProfile = "gtx1650"

const profileExt = ".yaml"

// Decode reads one YAML configuration and validates it. Unknown keys are rejected so
// that a misspelt threshold does not silently fall back to zero.
func Decode(r io.Reader) (*Configuration, error) {
	var c Configuration
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads a configuration from the filesystem.
func LoadFile(filename string) (*Configuration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read GPU configuration %s", filename)
	}
	c, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	if c.Name == "" {
		c.Name = strings.TrimSuffix(path.Base(filename), profileExt)
	}
	return c, nil
}

// LoadProfile reads one of the embedded profiles by name, with or without extension.
func LoadProfile(name string) (*Configuration, error) {
	name = strings.TrimSuffix(name, profileExt)
	f, err := configs.FS.Open(name + profileExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrProfileNotFound, "%q (available: %s)", name, strings.Join(List(), ", "))
		}
		return nil, errors.Wrapf(err, "open profile %s", name)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load profile %s", name)
	}
	if c.Name == "" {
		c.Name = name
	}
	return c, nil
}

// Load resolves ref the way the command line does: empty means DefaultProfile, an
// existing file path is read from disk, anything else names an embedded profile.
func Load(ref string) (*Configuration, error) {
	if ref == "" {
		return LoadProfile(DefaultProfile)
	}
	candidates := []string{ref}
	if !strings.HasSuffix(ref, profileExt) {
		candidates = append(candidates, ref+profileExt)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return LoadFile(candidate)
		}
	}
	return LoadProfile(ref)
}

// List returns the names of the embedded profiles.
func List() []string {
	entries, err := fs.ReadDir(configs.FS, ".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), profileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), profileExt))
	}
	sort.Strings(names)
	return names
}
