// Package rpmfile checks downloaded package files against their manifest
// entries: the digest over the whole file and the NEVRA in the RPM header.
package rpmfile

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/ralt/pkgmanifest/internal/models"
	"github.com/sassoftware/go-rpmutils"
)

// Verify confirms that the file at path carries the digest pinned by the
// manifest entry and that its header NEVRA matches. Any mismatch is a
// Download-typed error naming the package.
func Verify(path string, pkg models.Package) error {
	digest, err := fileDigest(path, pkg.Checksum.Method)
	if err != nil {
		return verifyErr(pkg, err)
	}
	if digest != pkg.Checksum.Digest {
		return verifyErr(pkg, fmt.Errorf(
			"%s digest mismatch: manifest has %s, file has %s",
			pkg.Checksum.Method, pkg.Checksum.Digest, digest))
	}

	header, err := readHeader(path)
	if err != nil {
		return verifyErr(pkg, err)
	}
	if header.Name != pkg.Name || header.Version != pkg.Version ||
		header.Release != pkg.Release || header.Arch != pkg.Arch {
		return verifyErr(pkg, fmt.Errorf(
			"header NEVRA %s-%s-%s.%s does not match manifest entry",
			header.Name, header.Version, header.Release, header.Arch))
	}
	return nil
}

func verifyErr(pkg models.Package, err error) error {
	return &models.ManifestError{Type: models.ErrDownload, Subject: pkg.Nevra.String(), Err: err}
}

// fileDigest streams the file through the manifest's checksum method.
func fileDigest(path string, method models.ChecksumMethod) (string, error) {
	h, err := hasherFor(method)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hasherFor(method models.ChecksumMethod) (hash.Hash, error) {
	switch method {
	case models.ChecksumMD5:
		return md5.New(), nil
	case models.ChecksumSHA1:
		return sha1.New(), nil
	case models.ChecksumSHA256:
		return sha256.New(), nil
	case models.ChecksumSHA384:
		return sha512.New384(), nil
	case models.ChecksumSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unknown checksum method %q", method)
	}
}

type headerNevra struct {
	Name    string
	Version string
	Release string
	Arch    string
}

// readHeader extracts the identity tags from the RPM header.
func readHeader(path string) (*headerNevra, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPM header: %w", err)
	}

	return &headerNevra{
		Name:    getStringTag(rpm, rpmutils.NAME),
		Version: getStringTag(rpm, rpmutils.VERSION),
		Release: getStringTag(rpm, rpmutils.RELEASE),
		Arch:    getStringTag(rpm, rpmutils.ARCH),
	}, nil
}

// getStringTag safely gets a string tag from RPM
func getStringTag(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
