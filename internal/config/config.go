package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sluice/internal/dataflow"
	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/pkgdef"
	"github.com/roach88/sluice/internal/schema"
)

// VersionNotSupportedError rejects documents written against the retired
// pre-0.5.0 layouts.
const VersionNotSupportedError = "ApiVersion not supported, try upgrading to 0.5.0"

// ParseDataflow decodes a dataflow document. The document is vetted against
// the structural schema first; semantic validation is left to
// Definition.Validate.
func ParseDataflow(filename string, data []byte) (*dataflow.Definition, error) {
	if err := vetDocument("#Dataflow", filename, data); err != nil {
		return nil, err
	}

	var probe versionProbe
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	switch probe.APIVersion {
	case "0.1.0", "0.2.0", "0.3.0", "0.4.0":
		return nil, fmt.Errorf("%s", VersionNotSupportedError)
	}

	var wire dataflowWire
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	return convertDataflow(wire)
}

// ParsePackage decodes a package document.
func ParsePackage(filename string, data []byte) (*pkgdef.PackageDefinition, error) {
	if err := vetDocument("#Package", filename, data); err != nil {
		return nil, err
	}

	var probe versionProbe
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	switch probe.APIVersion {
	case "0.1.0", "0.2.0", "0.3.0":
		return nil, fmt.Errorf("%s", VersionNotSupportedError)
	}

	var wire packageWire
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filename, err)
	}
	return convertPackage(wire)
}

// LoadDataflow reads and decodes a dataflow document from disk.
func LoadDataflow(path string) (*dataflow.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataflow config: %w", err)
	}
	return ParseDataflow(filepath.Base(path), data)
}

// LoadPackage reads and decodes a package document from disk.
func LoadPackage(path string) (*pkgdef.PackageDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading package config: %w", err)
	}
	return ParsePackage(filepath.Base(path), data)
}

func convertDataflow(wire dataflowWire) (*dataflow.Definition, error) {
	def := &dataflow.Definition{
		APIVersion: wire.APIVersion,
		Meta: pkgdef.Header{
			Name:      wire.Meta.Name,
			Namespace: wire.Meta.Namespace,
			Version:   wire.Meta.Version,
		},
	}

	imports, err := convertImports(wire.Imports)
	if err != nil {
		return nil, err
	}
	def.Imports = imports

	types, err := convertTypes(wire.Types)
	if err != nil {
		return nil, err
	}
	def.Types = types

	def.Topics = convertTopics(wire.Topics, wire.Config)

	for _, name := range sortedKeys(wire.Services) {
		svc, err := convertService(name, wire.Services[name])
		if err != nil {
			return nil, err
		}
		def.Services = append(def.Services, svc)
	}

	for _, name := range sortedKeys(wire.Schedule) {
		def.Schedules = append(def.Schedules, dataflow.ScheduleConfig{
			Name: name,
			Cron: wire.Schedule[name].Cron,
		})
	}

	for _, pw := range wire.Packages {
		pkg, err := convertPackage(pw)
		if err != nil {
			return nil, err
		}
		def.Packages = append(def.Packages, *pkg)
	}

	return def, nil
}

func convertPackage(wire packageWire) (*pkgdef.PackageDefinition, error) {
	switch wire.APIVersion {
	case "0.4.0", "0.5.0", "0.6.0", "":
	default:
		return nil, fmt.Errorf("Unsupported package version: %s", wire.APIVersion)
	}

	pkg := &pkgdef.PackageDefinition{
		APIVersion: wire.APIVersion,
		Meta: pkgdef.Header{
			Name:      wire.Meta.Name,
			Namespace: wire.Meta.Namespace,
			Version:   wire.Meta.Version,
		},
	}

	imports, err := convertImports(wire.Imports)
	if err != nil {
		return nil, err
	}
	pkg.Imports = imports

	types, err := convertTypes(wire.Types)
	if err != nil {
		return nil, err
	}
	pkg.Types = types

	for _, name := range sortedKeys(wire.States) {
		ty, err := convertType(name, wire.States[name])
		if err != nil {
			return nil, err
		}
		if ty.Kind != schema.KindKeyedState {
			return nil, fmt.Errorf("Invalid state definition: %s", name)
		}
		pkg.States = append(pkg.States, pipeline.TypedState{Name: name, Type: *ty.KeyedState})
	}

	for _, name := range sortedKeys(wire.Functions) {
		fw := wire.Functions[name]
		kind, ok := parseFunctionKind(fw.Operator)
		if !ok {
			return nil, fmt.Errorf("unknown operator %s for function %s", fw.Operator, name)
		}
		inv := convertInvocation(fw.Invocation)
		inv.Uses = name
		pkg.Functions = append(pkg.Functions, pkgdef.Function{Invocation: inv, Kind: kind})
	}

	return pkg, nil
}
