package provision

import (
	_ "embed"
	"fmt"

	"github.com/nishantd01/smart-backoffice/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Tables []models.TableTemplate `yaml:"tables"`
}

// ParseCatalog decodes a table catalogue and checks every row matches its header width.
func ParseCatalog(data []byte) ([]models.TableTemplate, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Tables) == 0 {
		return nil, fmt.Errorf("catalog has no tables")
	}

	seen := make(map[string]bool, len(file.Tables))
	for _, t := range file.Tables {
		if t.Name == "" || len(t.Header) == 0 {
			return nil, fmt.Errorf("catalog table %q: name and header are required", t.Key)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("catalog table %q defined twice", t.Name)
		}
		seen[t.Name] = true
		for i, row := range t.Rows {
			if len(row) != len(t.Header) {
				return nil, fmt.Errorf("catalog table %q row %d: %d cells, header has %d", t.Name, i+1, len(row), len(t.Header))
			}
		}
	}
	return file.Tables, nil
}

// DefaultCatalog returns the six template tables shipped with the binary.
func DefaultCatalog() []models.TableTemplate {
	tables, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return tables
}
