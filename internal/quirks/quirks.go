// Package quirks selects the propagation ruleset for an edition and version.
//
// Rulesets live in a YAML table. The default table is embedded from
// rules.yaml; callers may load a replacement with Load. Resolve turns an
// (edition, version) pair into an immutable Policy. A version the table does
// not list falls back to the nearest known version of the edition and yields
// an UNKNOWN_VERSION warning; an unknown edition is fatal.
package quirks

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/roach88/redstonesim/internal/simerr"
	"github.com/roach88/redstonesim/internal/topology"
)

//go:embed rules.yaml
var defaultRules []byte

// RearPrecision is how a comparator reads its rear input.
type RearPrecision string

const (
	// RearAnalog passes the rear signal strength through.
	RearAnalog RearPrecision = "analog"

	// RearBinary treats any rear signal as full strength.
	RearBinary RearPrecision = "binary"
)

// Flags are the capability switches of one ruleset.
type Flags struct {
	QuasiConnectivity    bool          `yaml:"quasi_connectivity" json:"quasi_connectivity"`
	RepeaterLocking      bool          `yaml:"repeater_locking" json:"repeater_locking"`
	ComparatorRear       RearPrecision `yaml:"comparator_rear" json:"comparator_rear"`
	ZeroTick             bool          `yaml:"zero_tick" json:"zero_tick"`
	DustDiagonals        bool          `yaml:"dust_diagonals" json:"dust_diagonals"`
	DiagonalAcrossChunks bool          `yaml:"diagonal_across_chunks" json:"diagonal_across_chunks"`
	BlockUpdateDetection bool          `yaml:"block_update_detection" json:"block_update_detection"`
}

// Policy is the resolved, immutable ruleset for one run.
type Policy struct {
	Edition string `json:"edition"`
	Version string `json:"version"`
	Flags
}

// Topology returns the resolver options implied by the policy.
func (p Policy) Topology() topology.Options {
	return topology.Options{
		QuasiConnectivity:    p.QuasiConnectivity,
		DustDiagonals:        p.DustDiagonals,
		DiagonalAcrossChunks: p.DiagonalAcrossChunks,
	}
}

// Edition is the set of rulesets known for one edition.
type Edition struct {
	Versions map[string]Flags `yaml:"versions"`
}

// Table is a loaded ruleset table.
type Table struct {
	DefaultEdition string             `yaml:"default_edition"`
	Editions       map[string]Edition `yaml:"editions"`
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return Parse(defaultRules)
})

// Default returns the embedded ruleset table.
func Default() *Table {
	t, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("embedded rules.yaml is invalid: %v", err))
	}
	return t
}

// Load reads a ruleset table from a YAML file.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a ruleset table. Unknown fields are rejected.
func Parse(raw []byte) (*Table, error) {
	var t Table
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return &t, nil
}

func (t *Table) validate() error {
	if len(t.Editions) == 0 {
		return fmt.Errorf("at least one edition is required")
	}
	if _, ok := t.Editions[t.DefaultEdition]; !ok {
		return fmt.Errorf("default_edition %q is not a listed edition", t.DefaultEdition)
	}
	for name, ed := range t.Editions {
		if len(ed.Versions) == 0 {
			return fmt.Errorf("edition %s: at least one version is required", name)
		}
		for v, f := range ed.Versions {
			if !semver.IsValid(canonical(v)) {
				return fmt.Errorf("edition %s: version %q is not a dotted version", name, v)
			}
			switch f.ComparatorRear {
			case RearAnalog, RearBinary:
			default:
				return fmt.Errorf("edition %s version %s: comparator_rear must be analog or binary, got %q", name, v, f.ComparatorRear)
			}
		}
	}
	return nil
}

// EditionNames returns the known editions in sorted order.
func (t *Table) EditionNames() []string {
	names := make([]string, 0, len(t.Editions))
	for name := range t.Editions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// VersionNames returns the known versions of edition in ascending version
// order.
func (t *Table) VersionNames(edition string) []string {
	ed, ok := t.Editions[edition]
	if !ok {
		return nil
	}
	vs := make([]string, 0, len(ed.Versions))
	for v := range ed.Versions {
		vs = append(vs, v)
	}
	slices.SortFunc(vs, func(a, b string) int {
		return semver.Compare(canonical(a), canonical(b))
	})
	return vs
}

// Resolve selects the policy for edition and version. An empty edition means
// the table default; an empty version means the latest known version. The
// returned warning is non-nil when the version had to be approximated.
func (t *Table) Resolve(edition, version string) (Policy, *simerr.Error, error) {
	if edition == "" {
		edition = t.DefaultEdition
	}
	ed, ok := t.Editions[edition]
	if !ok {
		return Policy{}, nil, simerr.UnsupportedEdition(edition, t.EditionNames())
	}

	known := t.VersionNames(edition)
	latest := known[len(known)-1]
	if version == "" {
		return Policy{Edition: edition, Version: latest, Flags: ed.Versions[latest]}, nil, nil
	}

	resolved := nearest(known, version)
	p := Policy{Edition: edition, Version: resolved, Flags: ed.Versions[resolved]}
	if semver.Compare(canonical(resolved), canonical(version)) == 0 && semver.IsValid(canonical(version)) {
		return p, nil, nil
	}
	return p, simerr.UnknownVersion(edition, version, resolved), nil
}

// nearest picks the largest known version not above requested, else the
// smallest. Unparseable versions map to the latest. known must be sorted.
func nearest(known []string, requested string) string {
	req := canonical(requested)
	if !semver.IsValid(req) {
		return known[len(known)-1]
	}
	best := known[0]
	for _, v := range known {
		if semver.Compare(canonical(v), req) <= 0 {
			best = v
		}
	}
	return best
}

func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
