// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes one stored run to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, id int64, path string) error {
	detail, err := s.Run(ctx, id)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes one stored run to path as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, id int64, path string) error {
	detail, err := s.Run(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
