package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChecksumMethod identifies the digest algorithm a package checksum was
// computed with. Only the five methods below are valid in a manifest.
type ChecksumMethod string

const (
	ChecksumMD5    ChecksumMethod = "md5"
	ChecksumSHA1   ChecksumMethod = "sha1"
	ChecksumSHA256 ChecksumMethod = "sha256"
	ChecksumSHA384 ChecksumMethod = "sha384"
	ChecksumSHA512 ChecksumMethod = "sha512"
)

// ParseChecksumMethod validates a checksum method token from a document.
func ParseChecksumMethod(s string) (ChecksumMethod, error) {
	switch m := ChecksumMethod(s); m {
	case ChecksumMD5, ChecksumSHA1, ChecksumSHA256, ChecksumSHA384, ChecksumSHA512:
		return m, nil
	}
	return "", &ManifestError{
		Type: ErrMalformedDocument,
		Err:  fmt.Errorf("unknown checksum method %q", s),
	}
}

// UnmarshalYAML rejects unknown method tokens instead of carrying them along.
func (m *ChecksumMethod) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseChecksumMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Checksum pins a package to an exact digest
type Checksum struct {
	Method ChecksumMethod `yaml:"method"`
	Digest string         `yaml:"digest"`
}
