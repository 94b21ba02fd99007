package cmd

import (
	"fmt"
	"strings"

	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
)

// DomainValidationError indicates a target that is not a usable domain name.
type DomainValidationError struct {
	Target string
	Err    error
}

func (e *DomainValidationError) Error() string {
	if e.Target == "" {
		return "empty domain"
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid domain %q: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("invalid domain %q", e.Target)
}

func (e *DomainValidationError) Unwrap() error { return e.Err }

// UnknownCheckError signals a --checks entry outside the supported set.
type UnknownCheckError struct {
	Name string
	Err  error
}

func (e *UnknownCheckError) Error() string {
	names := make([]string, 0, len(healthcheck.AllCheckTypes()))
	for _, t := range healthcheck.AllCheckTypes() {
		names = append(names, string(t))
	}
	return fmt.Sprintf("unknown check %q (available: %s)", e.Name, strings.Join(names, ", "))
}

func (e *UnknownCheckError) Unwrap() error { return e.Err }
