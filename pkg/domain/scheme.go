package domain

import (
	"fmt"
	"strings"
)

// Scheme selects how partial likelihoods are rescaled to avoid floating point underflow.
type Scheme string

const (
	SchemeNone    Scheme = "none"    // Scale factors are never requested
	SchemeAlways  Scheme = "always"  // Every evaluation recomputes scale factors
	SchemeDynamic Scheme = "dynamic" // Rescale after the first underflow, then mostly reuse
	SchemeDelayed Scheme = "delayed" // Rescale after the first underflow, then always recompute
	SchemeAuto    Scheme = "auto"    // Delegate to the engine's automatic scaling
)

// DefaultScheme is used when no scheme is configured.
// Dynamic runs as fast as none until the first underflow.
const DefaultScheme = SchemeDynamic

// ParseScheme converts a case-insensitive name into a Scheme.
// The empty string and "default" map to DefaultScheme.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return DefaultScheme, nil
	case string(SchemeNone):
		return SchemeNone, nil
	case string(SchemeAlways):
		return SchemeAlways, nil
	case string(SchemeDynamic):
		return SchemeDynamic, nil
	case string(SchemeDelayed):
		return SchemeDelayed, nil
	case string(SchemeAuto):
		return SchemeAuto, nil
	}
	return "", fmt.Errorf("unknown rescaling scheme %q", s)
}

// Retries reports whether a non-finite likelihood may be retried with fresh scale factors.
func (s Scheme) Retries() bool {
	return s == SchemeDynamic || s == SchemeDelayed
}
