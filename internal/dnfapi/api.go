// Package dnfapi is the boundary to the package manager capability:
// repository registration, spec resolution, downloads and transactions.
// The manifest engine only ever talks to these interfaces; concrete
// backends live elsewhere.
package dnfapi

import (
	"context"
	"fmt"

	"github.com/ralt/pkgmanifest/internal/checksum"
)

// RepoConfig is the live configuration for one registered repository
type RepoConfig struct {
	BaseURLs   []string
	Metalink   string
	Mirrorlist string
}

// RepoSet registers live repositories for the duration of one run. The set
// is rebuilt from empty each invocation and never persisted. Registration
// may perform I/O (metalink and mirrorlist chasing), so it takes the run's
// context.
type RepoSet interface {
	AddRepo(ctx context.Context, id string, cfg RepoConfig) error
}

// MultiRepoSet fans one registration out to several sets, so the resolver
// and the transaction engine see the same live repositories.
func MultiRepoSet(sets ...RepoSet) RepoSet {
	return multiRepoSet(sets)
}

type multiRepoSet []RepoSet

func (m multiRepoSet) AddRepo(ctx context.Context, id string, cfg RepoConfig) error {
	for _, set := range m {
		if err := set.AddRepo(ctx, id, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ResolveRequest is the query the orchestrator builds for the resolver
type ResolveRequest struct {
	Specs         []string
	Archs         []string
	IncludeSource bool
}

// PackageMeta is the raw metadata the resolver reports for one resolved
// package. ChecksumType carries the resolver's native hash ID; backends
// that only see RPM headers report HdrChecksumType instead. Zero means
// the scheme is not exposed.
type PackageMeta struct {
	Name    string
	Epoch   string
	Version string
	Release string
	Arch    string

	RepoID   string
	Location string
	Size     int64

	SourceRPM  string
	SourceName string

	ChecksumType    int
	HdrChecksumType int
	ChecksumDigest  string
}

// NEVRA renders the package identity as name-epoch:version-release.arch.
func (m PackageMeta) NEVRA() string {
	epoch := m.Epoch
	if epoch == "" {
		epoch = "0"
	}
	return fmt.Sprintf("%s-%s:%s-%s.%s", m.Name, epoch, m.Version, m.Release, m.Arch)
}

// ChecksumScheme reports which native numbering ChecksumType or
// HdrChecksumType uses, preferring the resolver's own scheme.
func (m PackageMeta) ChecksumScheme() (int, checksum.Scheme, bool) {
	if m.ChecksumType != 0 {
		return m.ChecksumType, checksum.SchemeResolver, true
	}
	if m.HdrChecksumType != 0 {
		return m.HdrChecksumType, checksum.SchemeRPM, true
	}
	return 0, 0, false
}

// Resolver turns package specs into concrete packages against the live
// repository set. Registration must be complete before Resolve is called.
type Resolver interface {
	Resolve(ctx context.Context, req ResolveRequest) ([]PackageMeta, error)
}

// Transactor requests package actions from the package manager
type Transactor interface {
	Install(spec string) error
	Reinstall(spec string) error
	Download(ctx context.Context, pkg PackageMeta, destdir string) (string, error)
}

// ModuleManager requests module stream actions and exposes the native
// modulemd documents for the module dump side channel.
type ModuleManager interface {
	Enable(modules []string) error
	Disable(modules []string) error
	Dump() ([]string, error)
}
