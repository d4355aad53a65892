package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textPackage = `
apiVersion: 0.5.0
meta:
  name: text
  version: 0.1.0
  namespace: example
types:
  sentence:
    type: string
functions:
  split-sentence:
    operator: flat-map
    inputs:
      - name: sentence
        type: sentence
    output:
      type: string
`

func TestPublishStoresPackage(t *testing.T) {
	pkgPath := writeFixture(t, "text.yaml", textPackage)
	indexPath := filepath.Join(t.TempDir(), "sluice", "index.db")

	out, err := execute(t, "--index", indexPath, "publish", pkgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Published example/text@0.1.0")
}

func TestPublishRejectsInvalidPackage(t *testing.T) {
	doc := `
apiVersion: 0.5.0
meta:
  name: text
  version: 0.1.0
  namespace: example
functions:
  broken-fn:
    operator: map
    inputs:
      - name: value
        type: no-such-type
    output:
      type: string
`
	pkgPath := writeFixture(t, "broken.yaml", doc)
	indexPath := filepath.Join(t.TempDir(), "index.db")

	out, err := execute(t, "--index", indexPath, "publish", pkgPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Package Config failed validation")
}

func TestPublishMissingFileIsCommandError(t *testing.T) {
	_, err := execute(t, "--index", filepath.Join(t.TempDir(), "index.db"),
		"publish", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPackagesListEmptyIndex(t *testing.T) {
	out, err := execute(t, "--index", filepath.Join(t.TempDir(), "index.db"), "packages", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No packages published")
}

func TestPackagesListShowsPublished(t *testing.T) {
	pkgPath := writeFixture(t, "text.yaml", textPackage)
	indexPath := filepath.Join(t.TempDir(), "index.db")

	_, err := execute(t, "--quiet", "--index", indexPath, "publish", pkgPath)
	require.NoError(t, err)

	out, err := execute(t, "--index", indexPath, "packages", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "example/text@0.1.0")
}

func TestBuildResolvesImportsFromIndex(t *testing.T) {
	pkgPath := writeFixture(t, "text.yaml", textPackage)
	indexPath := filepath.Join(t.TempDir(), "index.db")

	_, err := execute(t, "--quiet", "--index", indexPath, "publish", pkgPath)
	require.NoError(t, err)

	doc := `
apiVersion: 0.5.0
meta:
  name: splitter
  version: 0.1.0
  namespace: demo
imports:
  - pkg: example/text@0.1.0
    path: ../text
    types:
      - name: sentence
    functions:
      - name: split-sentence
topics:
  sentences:
    schema:
      value:
        type: sentence
        converter: json
services:
  splitting:
    sources:
      - type: topic
        id: sentences
    transforms:
      - operator: flat-map
        uses: split-sentence
`
	dfPath := writeFixture(t, "dataflow.yaml", doc)
	outDir := t.TempDir()

	_, err = execute(t, "--quiet", "--index", indexPath, "build", dfPath, "-o", outDir)
	require.NoError(t, err)

	wit, err := execute(t, "--index", indexPath, "validate", dfPath)
	require.NoError(t, err)
	assert.Contains(t, wit, "✓ demo/splitter@0.1.0 is valid")
}
