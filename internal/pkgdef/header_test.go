package pkgdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==== parsing ====

func TestParsePackageRef(t *testing.T) {
	h, err := ParsePackageRef("example/bank@0.1.0")
	require.NoError(t, err)
	assert.Equal(t, Header{Namespace: "example", Name: "bank", Version: "0.1.0"}, h)
}

func TestParsePackageRefRejectsMalformed(t *testing.T) {
	for _, ref := range []string{"bank@0.1.0", "example/bank", "example"} {
		_, err := ParsePackageRef(ref)
		require.Error(t, err, ref)
		assert.EqualError(t, err, "invalid package name format, it should be namespace/name@version")
	}
}

func TestParseCanonicalRoundTrip(t *testing.T) {
	h := Header{Namespace: "example", Name: "bank", Version: "0.1.0"}

	parsed, err := ParseCanonical(h.CanonicalName())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestParseCanonicalRejectsMalformed(t *testing.T) {
	_, err := ParseCanonical("example__bank")
	require.Error(t, err)
	assert.EqualError(t, err, "invalid header format, it should be namespace__name__version")
}

func TestHeaderDisplayForms(t *testing.T) {
	h := Header{Namespace: "example", Name: "bank", Version: "0.1.0"}

	assert.Equal(t, "example/bank@0.1.0", h.String())
	assert.Equal(t, "example__bank__0.1.0", h.CanonicalName())
	assert.Equal(t, "example:bank:0.1.0", h.Key())
}

// ==== validation ====

func TestHeaderValidateCollectsEveryMissingField(t *testing.T) {
	errs := Header{}.Validate()

	require.Len(t, errs, 3)
	assert.Equal(t, "Name cannot be empty", errs[0].Message)
	assert.Equal(t, "Namespace cannot be empty", errs[1].Message)
	assert.Equal(t, "Version cannot be empty", errs[2].Message)
}

func TestHeaderValidatePasses(t *testing.T) {
	errs := Header{Namespace: "example", Name: "bank", Version: "0.1.0"}.Validate()
	assert.False(t, errs.Any())
}
