package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/netdiag/internal/fsutil"
	"github.com/hugo-lorenzo-mato/netdiag/internal/probe"
)

// targetsFile is the on-disk shape of a standalone targets file.
type targetsFile struct {
	Targets []probe.Target `yaml:"targets"`
}

// LoadTargets reads a YAML targets file.
func LoadTargets(path string) ([]probe.Target, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file: %w", err)
	}

	var tf targetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing targets file %s: %w", path, err)
	}
	return tf.Targets, nil
}
