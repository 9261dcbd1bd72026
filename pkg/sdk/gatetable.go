package sdk

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flowc/pkg/errors"
)

const (
	// DefaultVersion is the minimum version of a module that calls no gated
	// function when the table does not set defaultVersion.
	DefaultVersion uint64 = 1

	// DefaultTrapFunction is the error-trapping wrapper whose first argument
	// names the function actually being called.
	DefaultTrapFunction = "pcall"

	// DefaultRequireFunction is the import function recognized by the
	// dependency collector.
	DefaultRequireFunction = "require"

	// MaxVersion is the largest version a gate table may name. Lock stores
	// backed by signed 64-bit integers hold every version up to it.
	MaxVersion uint64 = math.MaxInt64
)

// FunctionMapping is the version range implied by calling one function.
type FunctionMapping struct {
	MinSdkVersion uint64  `json:"minSdkVersion" toml:"minSdkVersion"`
	MaxSdkVersion *uint64 `json:"maxSdkVersion,omitempty" toml:"maxSdkVersion"`
}

// Interval converts the mapping to an [Interval].
func (m FunctionMapping) Interval() Interval {
	if m.MaxSdkVersion != nil {
		return Between(m.MinSdkVersion, *m.MaxSdkVersion)
	}
	return AtLeast(m.MinSdkVersion)
}

// GateTable is the version file: which functions are gated, which function
// probes the running SDK version, and the default module requirement.
type GateTable struct {
	DefaultVersion     *uint64                    `json:"defaultVersion,omitempty" toml:"defaultVersion"`
	FunctionMappings   map[string]FunctionMapping `json:"functionMappings" toml:"functionMappings"`
	SdkVersionFunction string                     `json:"sdkVersionFunction" toml:"sdkVersionFunction"`
	TrapFunction       string                     `json:"trapFunction,omitempty" toml:"trapFunction"`
	RequireFunction    string                     `json:"requireFunction,omitempty" toml:"requireFunction"`
}

// Default returns the interval seeded into every scope.
func (t *GateTable) Default() Interval {
	if t.DefaultVersion != nil {
		return AtLeast(*t.DefaultVersion)
	}
	return AtLeast(DefaultVersion)
}

// Lookup returns the interval implied by calling the named function.
func (t *GateTable) Lookup(name string) (Interval, bool) {
	m, ok := t.FunctionMappings[name]
	if !ok {
		return Interval{}, false
	}
	return m.Interval(), true
}

// Probe returns the name of the function whose result is the running SDK
// version.
func (t *GateTable) Probe() string { return t.SdkVersionFunction }

// Trap returns the error-trapping wrapper function name.
func (t *GateTable) Trap() string {
	if t.TrapFunction != "" {
		return t.TrapFunction
	}
	return DefaultTrapFunction
}

// Require returns the import function name.
func (t *GateTable) Require() string {
	if t.RequireFunction != "" {
		return t.RequireFunction
	}
	return DefaultRequireFunction
}

// Validate checks that the table is usable for analysis.
func (t *GateTable) Validate() error {
	if strings.TrimSpace(t.SdkVersionFunction) == "" {
		return errors.New(errors.ErrCodeInvalidGateTable, "sdkVersionFunction is required")
	}
	if t.DefaultVersion != nil && *t.DefaultVersion > MaxVersion {
		return errors.New(errors.ErrCodeInvalidGateTable,
			"defaultVersion %d exceeds %d", *t.DefaultVersion, MaxVersion)
	}
	for name, m := range t.FunctionMappings {
		if name == "" {
			return errors.New(errors.ErrCodeInvalidGateTable, "function mapping with empty name")
		}
		if m.MinSdkVersion > MaxVersion || (m.MaxSdkVersion != nil && *m.MaxSdkVersion > MaxVersion) {
			return errors.New(errors.ErrCodeInvalidGateTable,
				"function %q: version exceeds %d", name, MaxVersion)
		}
		if m.MaxSdkVersion != nil && *m.MaxSdkVersion < m.MinSdkVersion {
			return errors.New(errors.ErrCodeInvalidGateTable,
				"function %q: maxSdkVersion %d is below minSdkVersion %d", name, *m.MaxSdkVersion, m.MinSdkVersion)
		}
	}
	return nil
}

// Fingerprint returns a hex SHA-256 of the table's canonical JSON form.
// Two tables that resolve every call the same way share a fingerprint
// regardless of their source format.
func (t *GateTable) Fingerprint() string {
	canon := *t
	canon.TrapFunction = t.Trap()
	canon.RequireFunction = t.Require()
	if canon.DefaultVersion == nil {
		d := DefaultVersion
		canon.DefaultVersion = &d
	}
	data, _ := json.Marshal(canon)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Format identifies the encoding of a gate table document.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ParseGateTable decodes and validates a gate table document.
func ParseGateTable(data []byte, format Format) (*GateTable, error) {
	var t GateTable
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&t); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGateTable, err, "decode JSON gate table")
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &t); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGateTable, err, "decode TOML gate table")
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported gate table format %q", format)
	}
	if t.FunctionMappings == nil {
		t.FunctionMappings = map[string]FunctionMapping{}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadGateTable reads a gate table from path, choosing the format from the
// file extension (".toml" is TOML, anything else JSON).
func LoadGateTable(path string) (*GateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "version file %s", path)
		}
		return nil, fmt.Errorf("read version file %s: %w", path, err)
	}
	format := FormatJSON
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = FormatTOML
	}
	t, err := ParseGateTable(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
