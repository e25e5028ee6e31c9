package models

// Document kind tags and the schema versions this tool understands.
const (
	DocumentKindInput    = "rpm-package-input"
	DocumentKindManifest = "rpm-package-manifest"

	SchemaVersion = "0.0.2"
)

// supportedVersions lists every schema version the parser accepts.
// Documents are always written with SchemaVersion.
var supportedVersions = []string{"0.0.1", "0.0.2"}

// Header carries the fields shared by every document kind. It is decoded
// first so kind/version mismatches are reported before the full parse.
type Header struct {
	Document string `yaml:"document"`
	Version  string `yaml:"version"`
}

// Input is the user-authored declarative request preceding resolution.
type Input struct {
	Document string    `yaml:"document"`
	Version  string    `yaml:"version"`
	Data     InputData `yaml:"data"`
}

// InputData holds the request body of an input document
type InputData struct {
	Packages      InputPackages `yaml:"packages"`
	Modules       InputModules  `yaml:"modules,omitempty"`
	Archs         []string      `yaml:"archs,omitempty"`
	IncludeSource bool          `yaml:"include_source,omitempty"`
	Repositories  []Repository  `yaml:"repositories,omitempty"`
}

// InputPackages lists package specs by requested action
type InputPackages struct {
	Install   []string `yaml:"install,omitempty"`
	Reinstall []string `yaml:"reinstall,omitempty"`
}

// InputModules lists module specs by requested action
type InputModules struct {
	Enable  []string `yaml:"enable,omitempty"`
	Disable []string `yaml:"disable,omitempty"`
}

// Manifest is the fully resolved, checksum-pinned package set.
type Manifest struct {
	Document string       `yaml:"document"`
	Version  string       `yaml:"version"`
	Data     ManifestData `yaml:"data"`
}

// ManifestData holds the resolved body of a manifest document
type ManifestData struct {
	Archs        []string     `yaml:"archs"`
	Repositories []Repository `yaml:"repositories,omitempty"`
	Packages     []Package    `yaml:"packages"`
	Modules      []Module     `yaml:"modules,omitempty"`
}

// NewManifest returns an empty manifest with the current kind tag and
// schema version filled in.
func NewManifest() *Manifest {
	return &Manifest{
		Document: DocumentKindManifest,
		Version:  SchemaVersion,
	}
}
