// Package checksum translates the package manager's native checksum type
// codes into the manifest document's checksum method enumeration.
//
// Two independent numbering schemes feed the same five methods: the
// resolver's hash IDs and the RPM header's PGP hash algorithm IDs. The two
// integer spaces overlap without agreeing (both call SHA-1 "2", but SHA-256
// is 3 in one and 8 in the other), so they are kept in separate tables and
// merged only here.
package checksum

import (
	"fmt"

	"github.com/ralt/pkgmanifest/internal/models"
)

// Scheme identifies which native numbering a checksum type code belongs to
type Scheme int

const (
	// SchemeResolver is the package resolver's hash ID numbering.
	SchemeResolver Scheme = iota
	// SchemeRPM is the RPM header's PGP hash algorithm numbering.
	SchemeRPM
)

// String returns the string representation of Scheme
func (s Scheme) String() string {
	switch s {
	case SchemeResolver:
		return "resolver"
	case SchemeRPM:
		return "rpm"
	default:
		return "unknown"
	}
}

// Resolver hash ID codes.
const (
	ResolverMD5    = 1
	ResolverSHA1   = 2
	ResolverSHA256 = 3
	ResolverSHA384 = 4
	ResolverSHA512 = 5
)

// RPM header PGP hash algorithm codes.
const (
	RPMMD5    = 1
	RPMSHA1   = 2
	RPMSHA256 = 8
	RPMSHA384 = 9
	RPMSHA512 = 10
)

var resolverTable = map[int]models.ChecksumMethod{
	ResolverMD5:    models.ChecksumMD5,
	ResolverSHA1:   models.ChecksumSHA1,
	ResolverSHA256: models.ChecksumSHA256,
	ResolverSHA384: models.ChecksumSHA384,
	ResolverSHA512: models.ChecksumSHA512,
}

var rpmTable = map[int]models.ChecksumMethod{
	RPMMD5:    models.ChecksumMD5,
	RPMSHA1:   models.ChecksumSHA1,
	RPMSHA256: models.ChecksumSHA256,
	RPMSHA384: models.ChecksumSHA384,
	RPMSHA512: models.ChecksumSHA512,
}

// ToMethod maps a native checksum type code to the manifest method. A code
// outside the scheme's table is a hard error; guessing an algorithm would
// silently corrupt the manifest's integrity guarantees.
func ToMethod(code int, scheme Scheme) (models.ChecksumMethod, error) {
	var table map[int]models.ChecksumMethod
	switch scheme {
	case SchemeResolver:
		table = resolverTable
	case SchemeRPM:
		table = rpmTable
	default:
		return "", &models.ManifestError{
			Type: models.ErrUnsupportedChecksum,
			Err:  fmt.Errorf("unknown checksum scheme %d", scheme),
		}
	}

	method, ok := table[code]
	if !ok {
		return "", &models.ManifestError{
			Type: models.ErrUnsupportedChecksum,
			Err:  fmt.Errorf("unsupported checksum type code %d in %s scheme", code, scheme),
		}
	}
	return method, nil
}
