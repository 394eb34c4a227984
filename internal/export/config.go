// Package export runs database-to-object-store exports: each job in a
// manifest executes a SQL query and uploads the result set as a
// timestamped CSV object.
package export

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Job is one export unit: a named query whose result lands under the
// manifest prefix.
type Job struct {
	Name  string `yaml:"name"`
	Query string `yaml:"query"`
}

// Manifest describes a batch of export jobs.
type Manifest struct {
	Prefix string `yaml:"prefix"`
	Jobs   []Job  `yaml:"jobs"`
}

// ParseManifest decodes a YAML manifest and checks that every job has a
// name and a query.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse export manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("export manifest: no jobs defined")
	}
	seen := make(map[string]struct{}, len(m.Jobs))
	for i, job := range m.Jobs {
		if job.Name == "" {
			return nil, fmt.Errorf("export manifest: job %d has no name", i)
		}
		if job.Query == "" {
			return nil, fmt.Errorf("export manifest: job %q has no query", job.Name)
		}
		if _, ok := seen[job.Name]; ok {
			return nil, fmt.Errorf("export manifest: duplicate job %q", job.Name)
		}
		seen[job.Name] = struct{}{}
	}
	return &m, nil
}
