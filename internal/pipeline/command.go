// Package pipeline drives the manifest workflows: resolving an input
// document into a pinned manifest, and replaying a manifest as downloads
// or an install transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ralt/pkgmanifest/internal/checksum"
	"github.com/ralt/pkgmanifest/internal/dnfapi"
	"github.com/ralt/pkgmanifest/internal/models"
	"github.com/ralt/pkgmanifest/internal/nevra"
	"github.com/ralt/pkgmanifest/internal/repos"
	"github.com/ralt/pkgmanifest/internal/rpmfile"
	"github.com/sirupsen/logrus"
)

// Command is the working state of one invocation: the validated
// configuration, the parsed documents and the external collaborators.
type Command struct {
	cfg  Config
	deps Deps

	input      *models.Input
	manifest   *models.Manifest
	configured bool

	// VerifyDownloads controls post-download package verification.
	VerifyDownloads bool
}

// New creates a command; Configure must run before Run.
func New(cfg Config, deps Deps) *Command {
	if deps.HostArch == "" {
		deps.HostArch = dnfapi.HostArch()
	}
	return &Command{cfg: cfg, deps: deps, VerifyDownloads: true}
}

// Configure resolves effective file paths, validates that required files
// exist and parses documents eagerly so spec errors surface before the
// pipeline starts. All failures here are fatal configuration errors; no
// partial state is produced.
func (c *Command) Configure() error {
	if c.cfg.InputPath == "" {
		c.cfg.InputPath = DefaultInputFilename
	}
	if c.cfg.ManifestPath == "" {
		c.cfg.ManifestPath = DefaultManifestFilename
	}
	if c.cfg.ModuleDumpPath == "" {
		c.cfg.ModuleDumpPath = DefaultModuleDumpFilename
	}
	if c.cfg.DestDir == "" {
		c.cfg.DestDir = DefaultDownloadDir
	}

	switch c.cfg.Subcommand {
	case CmdNew:
		if len(c.cfg.Specs) == 0 {
			// No specs on the invocation: the input file is the request
			// and must exist.
			if _, err := os.Stat(c.cfg.InputPath); err != nil {
				return configErr(c.cfg.InputPath, "input file does not exist")
			}
			input, err := models.ParseInput(c.cfg.InputPath)
			if err != nil {
				return err
			}
			c.input = input
		} else if _, err := os.Stat(c.cfg.InputPath); err == nil {
			// Specs bypass the input file for selection, but its
			// repository list may still be needed.
			input, err := models.ParseInput(c.cfg.InputPath)
			if err != nil {
				return err
			}
			c.input = input
		}
	case CmdDownload, CmdInstall:
		if _, err := os.Stat(c.cfg.ManifestPath); err != nil {
			return configErr(c.cfg.ManifestPath, "manifest file does not exist")
		}
		manifest, err := models.ParseManifest(c.cfg.ManifestPath)
		if err != nil {
			return err
		}
		c.manifest = manifest

		if c.cfg.Subcommand == CmdInstall && len(c.effectiveArchs()) > 1 {
			return configErr("", "install supports a single architecture, got %v", c.effectiveArchs())
		}
	default:
		return configErr("", "unknown subcommand %q", c.cfg.Subcommand)
	}

	c.configured = true
	return nil
}

// Run executes the configured workflow.
func (c *Command) Run(ctx context.Context) error {
	if !c.configured {
		return configErr("", "command was not configured")
	}
	switch c.cfg.Subcommand {
	case CmdNew:
		return c.runNew(ctx)
	case CmdDownload:
		return c.runDownload(ctx)
	case CmdInstall:
		return c.runInstall(ctx)
	default:
		return configErr("", "unknown subcommand %q", c.cfg.Subcommand)
	}
}

// effectiveArchs resolves the architecture scope: explicit flags beat the
// document, which beats the host architecture. The result is sorted and
// de-duplicated so downstream output is deterministic.
func (c *Command) effectiveArchs() []string {
	archs := c.cfg.Archs
	if len(archs) == 0 && c.input != nil {
		archs = c.input.Data.Archs
	}
	if len(archs) == 0 && c.manifest != nil {
		archs = c.manifest.Data.Archs
	}
	if len(archs) == 0 {
		archs = []string{c.deps.HostArch}
	}

	seen := map[string]bool{}
	var out []string
	for _, arch := range archs {
		if !seen[arch] {
			seen[arch] = true
			out = append(out, arch)
		}
	}
	sort.Strings(out)
	return out
}

// repoMode picks where live repositories come from: the use-system flag
// beats a present input document, which beats a present manifest.
func (c *Command) repoMode() repos.Mode {
	switch {
	case c.cfg.UseSystemRepos:
		return repos.ModeSystem
	case c.input != nil:
		return repos.ModeInput
	case c.manifest != nil:
		return repos.ModeManifest
	default:
		return repos.ModeSystem
	}
}

func (c *Command) documentRepositories() []models.Repository {
	switch {
	case c.input != nil:
		return c.input.Data.Repositories
	case c.manifest != nil:
		return c.manifest.Data.Repositories
	default:
		return nil
	}
}

// setupRepositories registers the live repository set once per run.
// With a single architecture the placeholder is substituted in place; with
// several, each architecture gets its own registration under an
// arch-suffixed id, and buildEntry strips the suffix again so manifest
// entries reference the plain id.
func (c *Command) setupRepositories(ctx context.Context, archs []string) error {
	mode := c.repoMode()
	repositories := c.documentRepositories()

	if mode == repos.ModeSystem || len(archs) <= 1 {
		arch := ""
		if len(archs) == 1 {
			arch = archs[0]
		}
		return repos.Setup(ctx, c.deps.Repos, mode, repositories, arch)
	}

	for _, arch := range archs {
		suffixed := make([]models.Repository, len(repositories))
		for i, repo := range repositories {
			suffixed[i] = repo
			suffixed[i].ID = repo.ID + "-" + arch
		}
		if err := repos.Setup(ctx, c.deps.Repos, mode, suffixed, arch); err != nil {
			return err
		}
	}
	return nil
}

// runNew resolves the request into a pinned manifest: parse input, set up
// repositories, resolve packages per architecture, build entries, write
// the document(s) once.
func (c *Command) runNew(ctx context.Context) error {
	archs := c.effectiveArchs()
	installSpecs := c.cfg.Specs
	var reinstallSpecs []string
	includeSource := c.cfg.IncludeSource

	var enableModules, disableModules []string
	if c.input != nil {
		if len(installSpecs) == 0 {
			installSpecs = c.input.Data.Packages.Install
			reinstallSpecs = c.input.Data.Packages.Reinstall
		}
		enableModules = c.input.Data.Modules.Enable
		disableModules = c.input.Data.Modules.Disable
		includeSource = includeSource || c.input.Data.IncludeSource
	}
	if len(installSpecs)+len(reinstallSpecs) == 0 {
		return configErr(c.cfg.InputPath, "no package specs requested")
	}

	if err := c.setupRepositories(ctx, archs); err != nil {
		return err
	}
	if err := c.modulesAction(enableModules, "enable"); err != nil {
		return err
	}
	if err := c.modulesAction(disableModules, "disable"); err != nil {
		return err
	}

	batches := []struct {
		specs  []string
		action models.PackageAction
	}{
		{installSpecs, models.ActionInstall},
		{reinstallSpecs, models.ActionReinstall},
	}

	perArch := make(map[string][]models.Package, len(archs))
	for _, arch := range archs {
		var entries []models.Package
		for _, batch := range batches {
			if len(batch.specs) == 0 {
				continue
			}
			logrus.Infof("Resolving %d specs for %s", len(batch.specs), arch)
			resolved, err := c.deps.Resolver.Resolve(ctx, dnfapi.ResolveRequest{
				Specs:         batch.specs,
				Archs:         []string{arch},
				IncludeSource: includeSource,
			})
			if err != nil {
				return err
			}

			for _, meta := range resolved {
				entry, err := c.buildEntry(meta, arch)
				if err != nil {
					return err
				}
				entry.Action = batch.action
				entries = append(entries, entry)
			}
		}
		perArch[arch] = entries
	}

	modules := parseModuleSpecs(enableModules)
	repositories := c.manifestRepositories(archs)

	if c.cfg.PerArch {
		for _, arch := range archs {
			manifest := c.assembleManifest([]string{arch}, perArch[arch], modules, repositories)
			path := perArchManifestPath(c.cfg.ManifestPath, arch)
			if err := models.WriteManifest(path, manifest); err != nil {
				return err
			}
			logrus.Infof("Manifest written to %s (%d packages)", path, len(manifest.Data.Packages))
		}
	} else {
		var merged []models.Package
		for _, arch := range archs {
			merged = append(merged, perArch[arch]...)
		}
		manifest := c.assembleManifest(archs, merged, modules, repositories)
		if err := models.WriteManifest(c.cfg.ManifestPath, manifest); err != nil {
			return err
		}
		logrus.Infof("Manifest written to %s (%d packages)", c.cfg.ManifestPath, len(manifest.Data.Packages))
	}

	return c.writeModuleDump()
}

// assembleManifest builds the in-memory document with deterministic entry
// ordering. Duplicate entries (noarch packages resolved once per
// architecture) collapse to one.
func (c *Command) assembleManifest(archs []string, entries []models.Package, modules []models.Module, repositories []models.Repository) *models.Manifest {
	seen := map[string]bool{}
	unique := make([]models.Package, 0, len(entries))
	for _, entry := range entries {
		key := entry.Nevra.String()
		if !seen[key] {
			seen[key] = true
			unique = append(unique, entry)
		}
	}
	sort.Slice(unique, func(i, j int) bool {
		return unique[i].Nevra.String() < unique[j].Nevra.String()
	})

	manifest := models.NewManifest()
	manifest.Data = models.ManifestData{
		Archs:        archs,
		Repositories: repositories,
		Packages:     unique,
		Modules:      modules,
	}
	return manifest
}

// buildEntry turns resolver metadata into a pinned manifest entry.
func (c *Command) buildEntry(meta dnfapi.PackageMeta, arch string) (models.Package, error) {
	code, scheme, ok := meta.ChecksumScheme()
	if !ok {
		return models.Package{}, &models.ManifestError{
			Type:    models.ErrUnsupportedChecksum,
			Subject: meta.NEVRA(),
			Err:     fmt.Errorf("resolver reported no checksum"),
		}
	}
	method, err := checksum.ToMethod(code, scheme)
	if err != nil {
		return models.Package{}, fmt.Errorf("package %s: %w", meta.NEVRA(), err)
	}

	srpm, err := nevra.Source(meta.SourceRPM, meta.SourceName)
	if err != nil {
		return models.Package{}, fmt.Errorf("package %s: %w", meta.NEVRA(), err)
	}

	epoch := meta.Epoch
	if epoch == "" {
		epoch = "0"
	}

	return models.Package{
		Nevra: models.Nevra{
			Name:    meta.Name,
			Epoch:   epoch,
			Version: meta.Version,
			Release: meta.Release,
			Arch:    meta.Arch,
		},
		Checksum: models.Checksum{Method: method, Digest: meta.ChecksumDigest},
		Size:     meta.Size,
		RepoID:   strings.TrimSuffix(meta.RepoID, "-"+arch),
		Location: meta.Location,
		Srpm:     srpm,
	}, nil
}

// manifestRepositories copies the document's repository descriptors with
// every requested architecture genericized out of the URLs, so one
// manifest can replay anywhere.
func (c *Command) manifestRepositories(archs []string) []models.Repository {
	source := c.documentRepositories()
	out := make([]models.Repository, len(source))
	for i, repo := range source {
		out[i] = models.Repository{ID: repo.ID}
		for _, url := range repo.Baseurl {
			out[i].Baseurl = append(out[i].Baseurl, genericizeAll(url, archs))
		}
		out[i].Metalink = genericizeAll(repo.Metalink, archs)
		out[i].Mirrorlist = genericizeAll(repo.Mirrorlist, archs)
	}
	return out
}

func genericizeAll(url string, archs []string) string {
	for _, arch := range archs {
		url = nevra.GenericizeURL(url, arch)
	}
	return url
}

// runDownload replays a manifest by fetching every selected package into
// the destination directory and verifying each file against its pinned
// checksum and NEVRA. Per-package failures are collected, not fatal.
func (c *Command) runDownload(ctx context.Context) error {
	archs := c.effectiveArchs()
	if err := c.setupRepositories(ctx, archs); err != nil {
		return err
	}

	entries := c.selectedPackages(archs, true)
	if len(entries) == 0 {
		logrus.Warn("Manifest has no packages for the requested architectures")
		return nil
	}

	resolved, err := c.resolveEntries(ctx, entries, archs)
	if err != nil {
		return err
	}

	var failures []error
	for _, entry := range entries {
		meta, ok := resolved[entry.Nevra.String()]
		if !ok {
			failures = append(failures, &models.ManifestError{
				Type:    models.ErrDownload,
				Subject: entry.Nevra.String(),
				Err:     fmt.Errorf("not available in the configured repositories"),
			})
			continue
		}

		path, err := c.deps.Transactor.Download(ctx, meta, c.cfg.DestDir)
		if err != nil {
			logrus.Warnf("Download failed for %s: %v", entry.Nevra.String(), err)
			failures = append(failures, &models.ManifestError{
				Type:    models.ErrDownload,
				Subject: entry.Nevra.String(),
				Err:     err,
			})
			continue
		}

		if c.VerifyDownloads {
			if err := rpmfile.Verify(path, entry); err != nil {
				logrus.Warnf("Verification failed for %s: %v", entry.Nevra.String(), err)
				failures = append(failures, err)
				continue
			}
		}
		logrus.Infof("Downloaded %s", filepath.Base(path))
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	logrus.Infof("Downloaded %d packages to %s", len(entries), c.cfg.DestDir)
	return nil
}

// runInstall replays a manifest as an install transaction: enable the
// pinned modules, then dispatch each entry to its recorded action. Every
// entry is attempted even when one fails.
func (c *Command) runInstall(ctx context.Context) error {
	archs := c.effectiveArchs()
	if err := c.setupRepositories(ctx, archs); err != nil {
		return err
	}

	var moduleSpecs []string
	for _, module := range c.manifest.Data.Modules {
		moduleSpecs = append(moduleSpecs, module.Spec())
	}
	if err := c.modulesAction(moduleSpecs, "enable"); err != nil {
		return err
	}

	entries := c.selectedPackages(archs, false)
	if len(entries) == 0 {
		logrus.Warn("Manifest has no packages for the requested architectures")
		return nil
	}

	if _, err := c.resolveEntries(ctx, entries, archs); err != nil {
		return err
	}

	var installSpecs, reinstallSpecs []string
	for _, entry := range entries {
		if entry.Action == models.ActionReinstall {
			reinstallSpecs = append(reinstallSpecs, entry.Nevra.String())
		} else {
			installSpecs = append(installSpecs, entry.Nevra.String())
		}
	}
	return errors.Join(
		c.packagesAction(installSpecs, "install"),
		c.packagesAction(reinstallSpecs, "reinstall"),
	)
}

// selectedPackages filters manifest entries down to the requested
// architecture scope. noarch entries always qualify; source entries only
// when includeSrc is set (downloads fetch them, installs must not).
func (c *Command) selectedPackages(archs []string, includeSrc bool) []models.Package {
	wanted := map[string]bool{"noarch": true, "src": includeSrc}
	for _, arch := range archs {
		wanted[arch] = true
	}

	var out []models.Package
	for _, entry := range c.manifest.Data.Packages {
		if wanted[entry.Arch] {
			out = append(out, entry)
		}
	}
	return out
}

// resolveEntries queries the resolver for the manifest entries' exact
// NEVRAs and indexes the results.
func (c *Command) resolveEntries(ctx context.Context, entries []models.Package, archs []string) (map[string]dnfapi.PackageMeta, error) {
	specs := make([]string, len(entries))
	entryArchs := map[string]bool{}
	includeSource := false
	for i, entry := range entries {
		specs[i] = entry.Nevra.String()
		entryArchs[entry.Arch] = true
		if entry.Arch == "src" {
			includeSource = true
		}
	}
	queryArchs := append([]string{}, archs...)
	for arch := range entryArchs {
		queryArchs = append(queryArchs, arch)
	}

	resolved, err := c.deps.Resolver.Resolve(ctx, dnfapi.ResolveRequest{
		Specs:         specs,
		Archs:         queryArchs,
		IncludeSource: includeSource,
	})
	if err != nil {
		return nil, err
	}

	index := make(map[string]dnfapi.PackageMeta, len(resolved))
	for _, meta := range resolved {
		index[meta.NEVRA()] = meta
	}
	return index, nil
}

// packagesAction dispatches one action per package spec, attempting the
// whole batch and reporting every failure at the end.
func (c *Command) packagesAction(specs []string, action string) error {
	var failures []error
	for _, spec := range specs {
		var err error
		switch action {
		case "install":
			err = c.deps.Transactor.Install(spec)
		case "reinstall":
			err = c.deps.Transactor.Reinstall(spec)
		default:
			return fmt.Errorf("unknown package action %q", action)
		}
		if err != nil {
			logrus.Warnf("Failed to %s %s: %v", action, spec, err)
			failures = append(failures, &models.ManifestError{
				Type:    models.ErrPackageAction,
				Subject: spec,
				Err:     err,
			})
		}
	}
	return errors.Join(failures...)
}

// modulesAction requests a module action; an empty list is a no-op.
func (c *Command) modulesAction(modules []string, action string) error {
	if len(modules) == 0 {
		return nil
	}
	var err error
	switch action {
	case "enable":
		err = c.deps.Modules.Enable(modules)
	case "disable":
		err = c.deps.Modules.Disable(modules)
	default:
		return fmt.Errorf("unknown module action %q", action)
	}
	if err != nil {
		return &models.ManifestError{
			Type:    models.ErrPackageAction,
			Subject: strings.Join(modules, ", "),
			Err:     err,
		}
	}
	return nil
}

// writeModuleDump stores the native modulemd documents next to the
// manifest, joined by the document separator marker.
func (c *Command) writeModuleDump() error {
	docs, err := c.deps.Modules.Dump()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	content := strings.Join(docs, "\n"+ModularDataSeparator+"\n")
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := os.WriteFile(c.cfg.ModuleDumpPath, []byte(content), 0644); err != nil {
		return err
	}
	logrus.Infof("Module dump written to %s (%d documents)", c.cfg.ModuleDumpPath, len(docs))
	return nil
}

// parseModuleSpecs splits name:stream module specs into manifest entries.
func parseModuleSpecs(specs []string) []models.Module {
	modules := make([]models.Module, 0, len(specs))
	for _, spec := range specs {
		name, stream, _ := strings.Cut(spec, ":")
		modules = append(modules, models.Module{Name: name, Stream: stream})
	}
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Spec() < modules[j].Spec()
	})
	return modules
}

// perArchManifestPath inserts the architecture before the file extension:
// packages.manifest.yaml becomes packages.manifest.x86_64.yaml.
func perArchManifestPath(path, arch string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + "." + arch
	}
	return strings.TrimSuffix(path, ext) + "." + arch + ext
}
