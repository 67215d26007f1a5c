package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"campus-energy/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Buildings []models.BuildingProfile `yaml:"buildings"`
}

// Registry is the read-only building catalog. It is safe for concurrent use
// because nothing mutates it after construction.
type Registry struct {
	buildings []models.BuildingProfile
	byID      map[string]models.BuildingProfile
}

// Default returns the built-in campus catalog
func Default() *Registry {
	r, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("registry: embedded catalog is invalid: %v", err))
	}
	return r
}

// Load reads a catalog from path, or returns the default catalog when path is empty
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a YAML catalog and validates every profile
func Parse(data []byte) (*Registry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return New(f.Buildings)
}

// New builds a registry from profiles, rejecting invalid and duplicate entries
func New(profiles []models.BuildingProfile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, &models.ValidationError{Field: "buildings", Message: "catalog has no buildings"}
	}

	r := &Registry{
		buildings: make([]models.BuildingProfile, 0, len(profiles)),
		byID:      make(map[string]models.BuildingProfile, len(profiles)),
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, &models.ValidationError{Field: "id", Value: p.ID, Message: fmt.Sprintf("duplicate building id %s", p.ID)}
		}
		r.byID[p.ID] = p
		r.buildings = append(r.buildings, p)
	}
	return r, nil
}

// All returns the profiles in catalog order
func (r *Registry) All() []models.BuildingProfile {
	out := make([]models.BuildingProfile, len(r.buildings))
	copy(out, r.buildings)
	return out
}

// Get looks up a profile by id
func (r *Registry) Get(id string) (models.BuildingProfile, error) {
	p, ok := r.byID[id]
	if !ok {
		return models.BuildingProfile{}, &models.NotFoundError{Resource: "building", ID: id}
	}
	return p, nil
}

// IDs returns the building ids sorted
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	return len(r.buildings)
}
