package models

import "fmt"

// Nevra is the canonical identity tuple of a package build.
type Nevra struct {
	Name    string `yaml:"name"`
	Epoch   string `yaml:"epoch"`
	Version string `yaml:"version"`
	Release string `yaml:"release"`
	Arch    string `yaml:"arch"`
}

// String renders the tuple in name-epoch:version-release.arch form.
func (n Nevra) String() string {
	epoch := n.Epoch
	if epoch == "" {
		epoch = "0"
	}
	return fmt.Sprintf("%s-%s:%s-%s.%s", n.Name, epoch, n.Version, n.Release, n.Arch)
}

// PackageAction selects how a manifest entry replays during install.
// The zero value is a plain install and is omitted from documents.
type PackageAction string

const (
	ActionInstall   PackageAction = ""
	ActionReinstall PackageAction = "reinstall"
)

// Package is one resolved, pinned entry of a manifest.
//
// RepoID is a plain string key into the document's repository list; the
// referenced descriptor may legitimately be absent when the manifest is
// replayed against system repositories.
type Package struct {
	Nevra    `yaml:",inline"`
	Checksum Checksum      `yaml:"checksum"`
	Size     int64         `yaml:"size,omitempty"`
	RepoID   string        `yaml:"repo_id"`
	Location string        `yaml:"location,omitempty"`
	Action   PackageAction `yaml:"action,omitempty"`
	Srpm     *Nevra        `yaml:"srpm,omitempty"`
}

// Module is one resolved module stream pinned by a manifest.
type Module struct {
	Name   string `yaml:"name"`
	Stream string `yaml:"stream"`
}

// Spec renders the module as a name:stream spec string.
func (m Module) Spec() string {
	if m.Stream == "" {
		return m.Name
	}
	return m.Name + ":" + m.Stream
}
