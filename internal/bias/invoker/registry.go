package invoker

import (
	"fmt"
	"strings"

	"biasmeter/internal/bias/invoker/backends"
)

// Credential references, resolved against the environment by config.
const (
	CredentialOpenAI    = "OPENAI_API_KEY"
	CredentialAnthropic = "ANTHROPIC_API_KEY"
	CredentialGemini    = "GEMINI_API_KEY"
)

// DefaultCredentialRef returns the credential a family uses unless a spec
// overrides it.
func DefaultCredentialRef(family backends.Family) string {
	switch family {
	case backends.FamilyOpenAI:
		return CredentialOpenAI
	case backends.FamilyAnthropic:
		return CredentialAnthropic
	case backends.FamilyGemini:
		return CredentialGemini
	default:
		return ""
	}
}

// BackendSpec describes one selectable backend.
type BackendSpec struct {
	ID            string          `yaml:"id" json:"id"`
	Family        backends.Family `yaml:"family" json:"family"`
	Model         string          `yaml:"model" json:"model"`
	CredentialRef string          `yaml:"credential_ref" json:"-"`
	// FamilyDefault marks the backend used when falling back to this family.
	FamilyDefault bool `yaml:"family_default" json:"family_default"`
}

// DefaultCatalog is the built-in backend set. The first entry is the
// default backend and each family's first entry is its fallback.
func DefaultCatalog() []BackendSpec {
	return []BackendSpec{
		{ID: "gpt-4o-mini", Family: backends.FamilyOpenAI, Model: "gpt-4o-mini", FamilyDefault: true},
		{ID: "gpt-4o", Family: backends.FamilyOpenAI, Model: "gpt-4o"},
		{ID: "gpt-4", Family: backends.FamilyOpenAI, Model: "gpt-4"},
		{ID: "gpt-3.5-turbo", Family: backends.FamilyOpenAI, Model: "gpt-3.5-turbo"},
		{ID: "claude-haiku", Family: backends.FamilyAnthropic, Model: "claude-haiku-4-5-20251001", FamilyDefault: true},
		{ID: "claude-sonnet", Family: backends.FamilyAnthropic, Model: "claude-sonnet-4-5-20250929"},
		{ID: "gemini-flash", Family: backends.FamilyGemini, Model: "gemini-2.5-flash", FamilyDefault: true},
		{ID: "gemini-pro", Family: backends.FamilyGemini, Model: "gemini-2.5-pro"},
	}
}

// Registry holds backend specs keyed by ID, in registration order.
// It is immutable after NewRegistry returns.
type Registry struct {
	specs          map[string]BackendSpec
	order          []string
	familyDefaults map[backends.Family]string
}

// MergeCatalog appends extra to base. An extra spec marked FamilyDefault
// takes the family default over from base; base is not modified.
func MergeCatalog(base []BackendSpec, extra ...BackendSpec) []BackendSpec {
	claimed := make(map[backends.Family]bool)
	for _, spec := range extra {
		if spec.FamilyDefault {
			claimed[spec.Family] = true
		}
	}
	merged := make([]BackendSpec, 0, len(base)+len(extra))
	for _, spec := range base {
		if claimed[spec.Family] {
			spec.FamilyDefault = false
		}
		merged = append(merged, spec)
	}
	return append(merged, extra...)
}

// NewRegistry validates and registers specs. IDs are case-sensitive and must
// be unique. A family without an explicit default uses its first spec.
func NewRegistry(specs ...BackendSpec) (*Registry, error) {
	r := &Registry{
		specs:          make(map[string]BackendSpec, len(specs)),
		familyDefaults: make(map[backends.Family]string),
	}
	for _, spec := range specs {
		if err := r.register(spec); err != nil {
			return nil, err
		}
	}
	for _, id := range r.order {
		spec := r.specs[id]
		if _, ok := r.familyDefaults[spec.Family]; !ok {
			r.familyDefaults[spec.Family] = id
		}
	}
	return r, nil
}

func (r *Registry) register(spec BackendSpec) error {
	spec.ID = strings.TrimSpace(spec.ID)
	if spec.ID == "" {
		return fmt.Errorf("backend id is required")
	}
	if _, err := backends.ParseFamily(string(spec.Family)); err != nil {
		return fmt.Errorf("backend %s: %w", spec.ID, err)
	}
	if strings.TrimSpace(spec.Model) == "" {
		return fmt.Errorf("backend %s: model is required", spec.ID)
	}
	if _, dup := r.specs[spec.ID]; dup {
		return fmt.Errorf("backend %s: already registered", spec.ID)
	}
	if spec.CredentialRef == "" {
		spec.CredentialRef = DefaultCredentialRef(spec.Family)
	}
	if spec.FamilyDefault {
		if existing, ok := r.familyDefaults[spec.Family]; ok {
			return fmt.Errorf("backend %s: family %s already defaults to %s", spec.ID, spec.Family, existing)
		}
		r.familyDefaults[spec.Family] = spec.ID
	}

	r.specs[spec.ID] = spec
	r.order = append(r.order, spec.ID)
	return nil
}

// Get returns the spec registered under id.
func (r *Registry) Get(id string) (BackendSpec, bool) {
	spec, ok := r.specs[id]
	return spec, ok
}

// All returns every spec in registration order.
func (r *Registry) All() []BackendSpec {
	out := make([]BackendSpec, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.specs[id])
	}
	return out
}

// FamilyDefault returns the fallback spec for family.
func (r *Registry) FamilyDefault(family backends.Family) (BackendSpec, bool) {
	id, ok := r.familyDefaults[family]
	if !ok {
		return BackendSpec{}, false
	}
	return r.specs[id], true
}

// Credentials maps a credential reference to its secret.
type Credentials map[string]string

// Has reports whether ref resolves to a non-blank secret.
func (c Credentials) Has(ref string) bool {
	return strings.TrimSpace(c[ref]) != ""
}
