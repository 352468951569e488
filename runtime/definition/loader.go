package definition

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedAPIVersion is returned for documents of another apiVersion.
	ErrUnsupportedAPIVersion = errors.New("unsupported apiVersion")
	// ErrUnsupportedKind is returned for documents that are not a Workflow.
	ErrUnsupportedKind = errors.New("unsupported kind")
	// ErrInvalidVersion is returned when spec.version is not a strict semantic version.
	ErrInvalidVersion = errors.New("invalid workflow version")
	// ErrInvalidPolicy is returned for malformed policy values.
	ErrInvalidPolicy = errors.New("invalid workflow policy")
)

// Parse decodes and checks a workflow document: schema, identity, version
// and policy. Step-level checks run in Steps.
func Parse(data []byte) (*Workflow, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	if w.APIVersion != APIVersion {
		return nil, fmt.Errorf("%w: %q (want %q)", ErrUnsupportedAPIVersion, w.APIVersion, APIVersion)
	}
	if w.Kind != Kind {
		return nil, fmt.Errorf("%w: %q (want %q)", ErrUnsupportedKind, w.Kind, Kind)
	}
	if _, err := ParseVersion(w.Spec.Version); err != nil {
		return nil, err
	}
	if p := w.Spec.Policy; p != nil && p.ValidationTimeout != "" {
		d, err := time.ParseDuration(p.ValidationTimeout)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: validationTimeout %q", ErrInvalidPolicy, p.ValidationTimeout)
		}
	}
	return &w, nil
}

// LoadFile reads and parses a workflow file.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}
	w, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// ParseVersion parses spec.version. A leading "v" is accepted; the rest must
// be MAJOR.MINOR.PATCH with optional pre-release and build metadata.
func ParseVersion(version string) (*semver.Version, error) {
	if version == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidVersion)
	}
	v, err := semver.StrictNewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, version, err)
	}
	return v, nil
}
