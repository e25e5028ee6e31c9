package models

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ParseInput reads and validates an input document from path.
func ParseInput(path string) (*Input, error) {
	data, err := readDocument(path, DocumentKindInput)
	if err != nil {
		return nil, err
	}

	var input Input
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, malformed(path, err)
	}
	return &input, nil
}

// ParseManifest reads and validates a manifest document from path.
func ParseManifest(path string) (*Manifest, error) {
	data, err := readDocument(path, DocumentKindManifest)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, malformed(path, err)
	}
	return &manifest, nil
}

// WriteManifest serializes the manifest and writes it in one shot. The
// document is marshaled fully in memory and lands via a temp file plus
// rename, so a failure never leaves a partial or truncated manifest behind.
func WriteManifest(path string, manifest *Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return &ManifestError{Type: ErrMalformedDocument, Subject: path, Err: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	// CreateTemp opens 0600 and the rename would keep it.
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// readDocument loads the file and checks the document kind tag and schema
// version before the caller attempts a full decode.
func readDocument(path, expectedKind string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Type: ErrConfig, Subject: path, Err: err}
	}

	var header Header
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, malformed(path, err)
	}

	if header.Document != expectedKind {
		return nil, malformed(path, fmt.Errorf(
			"expected document %q, found %q", expectedKind, header.Document))
	}
	if !versionSupported(header.Version) {
		return nil, malformed(path, fmt.Errorf(
			"unsupported schema version %q, supported: %v", header.Version, supportedVersions))
	}
	return data, nil
}

func versionSupported(version string) bool {
	for _, v := range supportedVersions {
		if v == version {
			return true
		}
	}
	return false
}

func malformed(path string, err error) error {
	return &ManifestError{Type: ErrMalformedDocument, Subject: path, Err: err}
}
