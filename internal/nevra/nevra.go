// Package nevra derives canonical name/epoch/version/release/arch tuples
// for source packages and genericizes architecture-specific URLs.
package nevra

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ralt/pkgmanifest/internal/models"
)

// ArchPlaceholder is the portable substitution token standing in for a
// concrete CPU architecture inside repository URLs.
const ArchPlaceholder = "$arch"

// srpmSuffixes are the recognized source package filename endings.
var srpmSuffixes = []string{".src.rpm", ".nosrc.rpm"}

// Source derives the source package tuple from a binary package's source
// RPM filename ("name-version-release.src.rpm") and its separately reported
// source name. The source name wins for the name field; version and release
// come from the filename. A package without a source RPM yields (nil, nil),
// which is not an error: source packages themselves have none.
func Source(sourceRPM, sourceName string) (*models.Nevra, error) {
	if sourceRPM == "" {
		return nil, nil
	}

	trimmed := sourceRPM
	for _, suffix := range srpmSuffixes {
		if strings.HasSuffix(trimmed, suffix) {
			trimmed = strings.TrimSuffix(trimmed, suffix)
			break
		}
	}

	// name-version-release: release after the last dash, version between
	// the last two dashes, name is the rest.
	relIdx := strings.LastIndex(trimmed, "-")
	if relIdx <= 0 {
		return nil, fmt.Errorf("malformed source rpm filename %q", sourceRPM)
	}
	verIdx := strings.LastIndex(trimmed[:relIdx], "-")
	if verIdx <= 0 {
		return nil, fmt.Errorf("malformed source rpm filename %q", sourceRPM)
	}

	name := trimmed[:verIdx]
	version := trimmed[verIdx+1 : relIdx]
	release := trimmed[relIdx+1:]
	if version == "" || release == "" {
		return nil, fmt.Errorf("malformed source rpm filename %q", sourceRPM)
	}

	// An unset epoch and epoch 0 are equivalent to the package manager,
	// but the manifest requires an explicit value for round-trip stability.
	epoch := "0"
	if colon := strings.Index(version, ":"); colon >= 0 {
		epoch = version[:colon]
		version = version[colon+1:]
	}

	if sourceName != "" {
		name = sourceName
	}

	return &models.Nevra{
		Name:    name,
		Epoch:   epoch,
		Version: version,
		Release: release,
		Arch:    "src",
	}, nil
}

var urlToken = regexp.MustCompile(`[A-Za-z0-9_]+`)

// GenericizeURL replaces the architecture name with ArchPlaceholder wherever
// it appears as a whole token of the URL, so one manifest can serve several
// architectures. The match is token-bounded: a package literally named after
// an arch string ("myx86_64pkg") is left alone. Idempotent.
func GenericizeURL(url, arch string) string {
	if arch == "" {
		return url
	}
	return urlToken.ReplaceAllStringFunc(url, func(token string) string {
		if token == arch {
			return ArchPlaceholder
		}
		return token
	})
}

// ConcretizeURL substitutes the placeholder back for an exact architecture
// when a pinned document is replayed.
func ConcretizeURL(url, arch string) string {
	return strings.ReplaceAll(url, ArchPlaceholder, arch)
}
