package pkgdef

import (
	"fmt"
	"strings"

	"github.com/roach88/sluice/internal/diag"
)

// Header identifies a package or dataflow: namespace, name, and version.
type Header struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Version   string `json:"version" yaml:"version"`
}

// ParsePackageRef parses the namespace/name@version reference form.
func ParsePackageRef(ref string) (Header, error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 {
		return Header{}, fmt.Errorf("invalid package name format, it should be namespace/name@version")
	}
	namespace := parts[0]
	parts = strings.Split(parts[1], "@")
	if len(parts) != 2 {
		return Header{}, fmt.Errorf("invalid package name format, it should be namespace/name@version")
	}
	return Header{Namespace: namespace, Name: parts[0], Version: parts[1]}, nil
}

// ParseCanonical parses the namespace__name__version file-name form.
func ParseCanonical(s string) (Header, error) {
	parts := strings.Split(s, "__")
	if len(parts) != 3 {
		return Header{}, fmt.Errorf("invalid header format, it should be namespace__name__version")
	}
	return Header{Namespace: parts[0], Name: parts[1], Version: parts[2]}, nil
}

// String renders the package reference form, namespace/name@version.
func (h Header) String() string {
	return fmt.Sprintf("%s/%s@%s", h.Namespace, h.Name, h.Version)
}

// CanonicalName renders the identity in a form usable as a file name.
func (h Header) CanonicalName() string {
	return fmt.Sprintf("%s__%s__%s", h.Namespace, h.Name, h.Version)
}

// Key renders the identity form the dependency resolver indexes by.
func (h Header) Key() string {
	return fmt.Sprintf("%s:%s:%s", h.Namespace, h.Name, h.Version)
}

// Validate checks that every identity component is present.
func (h Header) Validate() diag.Violations {
	var errs diag.Violations
	if h.Name == "" {
		errs = diag.Merge(errs, diag.New("Name cannot be empty"))
	}
	if h.Namespace == "" {
		errs = diag.Merge(errs, diag.New("Namespace cannot be empty"))
	}
	if h.Version == "" {
		errs = diag.Merge(errs, diag.New("Version cannot be empty"))
	}
	return errs
}
