package pipeline

import (
	"fmt"

	"github.com/ralt/pkgmanifest/internal/dnfapi"
	"github.com/ralt/pkgmanifest/internal/models"
)

// Default artifact locations, overridable per invocation.
const (
	DefaultInputFilename      = "rpms.in.yaml"
	DefaultManifestFilename   = "packages.manifest.yaml"
	DefaultModuleDumpFilename = "modules_dump.modulemd.yaml"
	DefaultDownloadDir        = "bootstrap_repo"

	// ModularDataSeparator splits concatenated modulemd documents in the
	// module dump file.
	ModularDataSeparator = "..."
)

// Subcommand selects the workflow for one invocation
type Subcommand string

const (
	CmdNew      Subcommand = "new"
	CmdDownload Subcommand = "download"
	CmdInstall  Subcommand = "install"
)

// Config is the fully enumerated option set of one invocation. It is
// populated from CLI flags, validated once during Configure, and never
// mutated afterwards.
type Config struct {
	Subcommand     Subcommand
	InputPath      string
	ManifestPath   string
	ModuleDumpPath string
	DestDir        string
	Archs          []string
	Specs          []string
	UseSystemRepos bool
	IncludeSource  bool
	PerArch        bool
}

// Deps bundles the external package manager capabilities the pipeline
// composes. The live repository set is owned by the caller for the
// duration of one run and discarded afterwards.
type Deps struct {
	Repos      dnfapi.RepoSet
	Resolver   dnfapi.Resolver
	Transactor dnfapi.Transactor
	Modules    dnfapi.ModuleManager
	HostArch   string
}

func configErr(subject string, format string, args ...interface{}) error {
	return &models.ManifestError{
		Type:    models.ErrConfig,
		Subject: subject,
		Err:     fmt.Errorf(format, args...),
	}
}
