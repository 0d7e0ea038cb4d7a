package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/df-mc/dragonfly/server/block/cube"
	"gopkg.in/yaml.v3"
)

// Scenario defines a circuit test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file
	// name.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Request is an inline simulate request in wire form.
	Request map[string]any `yaml:"request,omitempty"`

	// RequestFile is a JSON request document. Relative paths are resolved
	// against the scenario file's directory. Exactly one of Request and
	// RequestFile is set.
	RequestFile string `yaml:"request_file,omitempty"`

	// Expect checks the run as a whole.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions check individual blocks and the diff log.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies expected run-level outcomes. Unset fields are not
// checked.
type ExpectClause struct {
	// Terminated is "settled" or "exhausted".
	Terminated string `yaml:"terminated,omitempty"`

	// TicksSimulated is the expected number of executed ticks.
	TicksSimulated *int `yaml:"ticks_simulated,omitempty"`

	// Warnings lists the expected warning codes in order.
	Warnings []string `yaml:"warnings,omitempty"`

	// Error is the error code the request must be rejected with.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates one aspect of a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Tick selects the tick for state and changed assertions.
	Tick int `yaml:"tick,omitempty"`

	// At is the block position as [x, y, z].
	At []int `yaml:"at,omitempty"`

	// Expect holds observable fields by wire name (subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected total for change_count.
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertState       = "state"
	AssertChanged     = "changed"
	AssertUnchanged   = "unchanged"
	AssertChangeCount = "change_count"
	AssertFinal       = "final"
)

// Pos returns At as a position. Only meaningful after validation.
func (a Assertion) Pos() cube.Pos {
	return cube.Pos{a.At[0], a.At[1], a.At[2]}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.RequestFile != "" && !filepath.IsAbs(scenario.RequestFile) {
		scenario.RequestFile = filepath.Join(filepath.Dir(path), scenario.RequestFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios lists the YAML files under dir in lexical order. A non-empty
// filter is a glob matched against the file name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			if ok, _ := filepath.Match(filter, name); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// RequestJSON returns the scenario's request document.
func (s *Scenario) RequestJSON() ([]byte, error) {
	if s.RequestFile != "" {
		data, err := os.ReadFile(s.RequestFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
		return data, nil
	}
	data, err := json.Marshal(s.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inline request: %w", err)
	}
	return data, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Request == nil && s.RequestFile == "":
		return fmt.Errorf("one of request or request_file is required")
	case s.Request != nil && s.RequestFile != "":
		return fmt.Errorf("request and request_file are mutually exclusive")
	}
	if s.RequestFile != "" {
		if _, err := os.Stat(s.RequestFile); os.IsNotExist(err) {
			return fmt.Errorf("request file not found: %s", s.RequestFile)
		}
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}
	if s.Expect != nil {
		if err := validateExpect(s.Expect, len(s.Assertions)); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(e *ExpectClause, assertions int) error {
	switch e.Terminated {
	case "", "settled", "exhausted":
	default:
		return fmt.Errorf("expect.terminated must be settled or exhausted, got %q", e.Terminated)
	}
	if e.TicksSimulated != nil && *e.TicksSimulated < 0 {
		return fmt.Errorf("expect.ticks_simulated must be non-negative")
	}
	if e.Error != "" && (e.Terminated != "" || e.TicksSimulated != nil || assertions > 0) {
		return fmt.Errorf("expect.error cannot be combined with run expectations or assertions")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsPos := func() error {
		if len(a.At) != 3 {
			return fmt.Errorf("assertions[%d]: at must be [x, y, z] for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertState:
		if err := needsPos(); err != nil {
			return err
		}
		if a.Tick < 0 {
			return fmt.Errorf("assertions[%d]: tick must be non-negative for state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for state", index)
		}
	case AssertChanged:
		if err := needsPos(); err != nil {
			return err
		}
		if a.Tick < 1 {
			return fmt.Errorf("assertions[%d]: tick must be >= 1 for changed", index)
		}
	case AssertUnchanged:
		if err := needsPos(); err != nil {
			return err
		}
	case AssertChangeCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for change_count", index)
		}
	case AssertFinal:
		if err := needsPos(); err != nil {
			return err
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
