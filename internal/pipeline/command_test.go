package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ralt/pkgmanifest/internal/dnfapi"
	"github.com/ralt/pkgmanifest/internal/models"
)

type fakeRepoSet struct {
	added []string
}

func (f *fakeRepoSet) AddRepo(ctx context.Context, id string, cfg dnfapi.RepoConfig) error {
	f.added = append(f.added, id)
	return nil
}

type fakeResolver struct {
	metas    []dnfapi.PackageMeta
	err      error
	calls    int
	requests []dnfapi.ResolveRequest
}

func (f *fakeResolver) Resolve(ctx context.Context, req dnfapi.ResolveRequest) ([]dnfapi.PackageMeta, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	archs := map[string]bool{"noarch": true, "src": true}
	for _, arch := range req.Archs {
		archs[arch] = true
	}
	specs := map[string]bool{}
	for _, spec := range req.Specs {
		specs[spec] = true
	}

	var out []dnfapi.PackageMeta
	for _, meta := range f.metas {
		if archs[meta.Arch] && (specs[meta.Name] || specs[meta.NEVRA()]) {
			out = append(out, meta)
		}
	}
	// Resolver-internal ordering is not stable; returning a different
	// order on every call exercises the pipeline's determinism.
	if f.calls%2 == 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

type fakeTransactor struct {
	installed   []string
	reinstalled []string
	downloaded  []string
	failOn      map[string]error
}

func (f *fakeTransactor) fail(spec string) error {
	for key, err := range f.failOn {
		if strings.Contains(spec, key) {
			return err
		}
	}
	return nil
}

func (f *fakeTransactor) Install(spec string) error {
	if err := f.fail(spec); err != nil {
		return err
	}
	f.installed = append(f.installed, spec)
	return nil
}

func (f *fakeTransactor) Reinstall(spec string) error {
	if err := f.fail(spec); err != nil {
		return err
	}
	f.reinstalled = append(f.reinstalled, spec)
	return nil
}

func (f *fakeTransactor) Download(ctx context.Context, pkg dnfapi.PackageMeta, destdir string) (string, error) {
	if err := f.fail(pkg.NEVRA()); err != nil {
		return "", err
	}
	f.downloaded = append(f.downloaded, pkg.NEVRA())
	return filepath.Join(destdir, pkg.Name+".rpm"), nil
}

type fakeModules struct {
	enabled  [][]string
	disabled [][]string
	dumpDocs []string
}

func (f *fakeModules) Enable(modules []string) error {
	f.enabled = append(f.enabled, modules)
	return nil
}

func (f *fakeModules) Disable(modules []string) error {
	f.disabled = append(f.disabled, modules)
	return nil
}

func (f *fakeModules) Dump() ([]string, error) {
	return f.dumpDocs, nil
}

func testDeps(resolver *fakeResolver, transactor *fakeTransactor) Deps {
	return Deps{
		Repos:      &fakeRepoSet{},
		Resolver:   resolver,
		Transactor: transactor,
		Modules:    &fakeModules{},
		HostArch:   "x86_64",
	}
}

func testMetas() []dnfapi.PackageMeta {
	return []dnfapi.PackageMeta{
		{
			Name: "zlib", Epoch: "0", Version: "1.3", Release: "2", Arch: "x86_64",
			RepoID: "fedora", Location: "Packages/z/zlib-1.3-2.x86_64.rpm", Size: 100,
			SourceRPM: "zlib-1.3-2.src.rpm", SourceName: "zlib",
			ChecksumType: 3, ChecksumDigest: "aaa",
		},
		{
			Name: "bash", Epoch: "0", Version: "5.2", Release: "1", Arch: "x86_64",
			RepoID: "fedora", Location: "Packages/b/bash-5.2-1.x86_64.rpm", Size: 200,
			SourceRPM: "bash-5.2-1.src.rpm", SourceName: "bash",
			ChecksumType: 3, ChecksumDigest: "bbb",
		},
	}
}

func writeInputDoc(t *testing.T, dir string, installs, reinstalls []string) string {
	t.Helper()
	content := "document: rpm-package-input\nversion: \"0.0.2\"\ndata:\n  packages:\n"
	if len(installs) > 0 {
		content += "    install:\n"
		for _, spec := range installs {
			content += "      - " + spec + "\n"
		}
	}
	if len(reinstalls) > 0 {
		content += "    reinstall:\n"
		for _, spec := range reinstalls {
			content += "      - " + spec + "\n"
		}
	}
	content += `  repositories:
    - id: fedora
      baseurl:
        - http://example.com/fedora/x86_64/os
`
	path := filepath.Join(dir, "rpms.in.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeInputFile(t *testing.T, dir string) string {
	t.Helper()
	return writeInputDoc(t, dir, []string{"bash", "zlib"}, nil)
}

func runNewOnce(t *testing.T, dir, name string, deps Deps) []byte {
	t.Helper()
	cfg := Config{
		Subcommand:   CmdNew,
		InputPath:    writeInputFile(t, dir),
		ManifestPath: filepath.Join(dir, name),
	}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	data, err := os.ReadFile(cfg.ManifestPath)
	if err != nil {
		t.Fatalf("Manifest not written: %v", err)
	}
	return data
}

func TestNewProducesByteIdenticalManifests(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{metas: testMetas()}
	deps := testDeps(resolver, &fakeTransactor{})

	first := runNewOnce(t, dir, "a.manifest.yaml", deps)
	second := runNewOnce(t, dir, "b.manifest.yaml", deps)

	if !bytes.Equal(first, second) {
		t.Errorf("repeated runs produced different manifests:\n%s\n---\n%s", first, second)
	}
}

func TestNewManifestContents(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{metas: testMetas()}
	deps := testDeps(resolver, &fakeTransactor{})
	runNewOnce(t, dir, "packages.manifest.yaml", deps)

	manifest, err := models.ParseManifest(filepath.Join(dir, "packages.manifest.yaml"))
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}

	if len(manifest.Data.Packages) != 2 {
		t.Fatalf("packages = %d", len(manifest.Data.Packages))
	}
	// stable sort by NEVRA: bash before zlib
	if manifest.Data.Packages[0].Name != "bash" || manifest.Data.Packages[1].Name != "zlib" {
		t.Errorf("entries not ordered: %s, %s",
			manifest.Data.Packages[0].Name, manifest.Data.Packages[1].Name)
	}

	pkg := manifest.Data.Packages[0]
	if pkg.Checksum.Method != models.ChecksumSHA256 || pkg.Checksum.Digest != "bbb" {
		t.Errorf("checksum = %+v", pkg.Checksum)
	}
	if pkg.Srpm == nil || pkg.Srpm.Arch != "src" || pkg.Srpm.Epoch != "0" {
		t.Errorf("srpm = %+v", pkg.Srpm)
	}
	if pkg.RepoID != "fedora" {
		t.Errorf("repo_id = %q", pkg.RepoID)
	}
	if manifest.Data.Repositories[0].Baseurl[0] != "http://example.com/fedora/$arch/os" {
		t.Errorf("repository URL not genericized: %q", manifest.Data.Repositories[0].Baseurl[0])
	}
}

func TestNewUnsupportedChecksumCodeAborts(t *testing.T) {
	dir := t.TempDir()
	metas := testMetas()
	metas[0].ChecksumType = 999
	resolver := &fakeResolver{metas: metas}
	deps := testDeps(resolver, &fakeTransactor{})

	cfg := Config{
		Subcommand:   CmdNew,
		InputPath:    writeInputFile(t, dir),
		ManifestPath: filepath.Join(dir, "packages.manifest.yaml"),
	}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	err := cmd.Run(context.Background())
	if err == nil {
		t.Fatal("Run accepted an unknown checksum code")
	}
	if !strings.Contains(err.Error(), "999") || !strings.Contains(err.Error(), "zlib") {
		t.Errorf("error %q does not identify the package and code", err)
	}

	// A manifest with an unverifiable package must never be written.
	if _, statErr := os.Stat(cfg.ManifestPath); !os.IsNotExist(statErr) {
		t.Error("manifest was written despite the checksum error")
	}
}

func TestNewChecksumFallsBackToRPMScheme(t *testing.T) {
	dir := t.TempDir()
	metas := testMetas()[:1]
	metas[0].ChecksumType = 0
	metas[0].HdrChecksumType = 8 // sha256 in the rpm numbering
	resolver := &fakeResolver{metas: metas}
	deps := testDeps(resolver, &fakeTransactor{})
	runNewOnce(t, dir, "packages.manifest.yaml", deps)

	manifest, err := models.ParseManifest(filepath.Join(dir, "packages.manifest.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if manifest.Data.Packages[0].Checksum.Method != models.ChecksumSHA256 {
		t.Errorf("method = %q", manifest.Data.Packages[0].Checksum.Method)
	}
}

func TestNewPerArchWritesOneFilePerArch(t *testing.T) {
	dir := t.TempDir()
	metas := testMetas()
	metas = append(metas, dnfapi.PackageMeta{
		Name: "bash", Epoch: "0", Version: "5.2", Release: "1", Arch: "aarch64",
		RepoID: "fedora", ChecksumType: 3, ChecksumDigest: "ccc",
		SourceRPM: "bash-5.2-1.src.rpm", SourceName: "bash",
	})
	resolver := &fakeResolver{metas: metas}
	deps := testDeps(resolver, &fakeTransactor{})

	cfg := Config{
		Subcommand:   CmdNew,
		InputPath:    writeInputFile(t, dir),
		ManifestPath: filepath.Join(dir, "packages.manifest.yaml"),
		Archs:        []string{"x86_64", "aarch64"},
		PerArch:      true,
	}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, arch := range []string{"x86_64", "aarch64"} {
		path := filepath.Join(dir, "packages.manifest."+arch+".yaml")
		manifest, err := models.ParseManifest(path)
		if err != nil {
			t.Fatalf("per-arch manifest for %s: %v", arch, err)
		}
		if len(manifest.Data.Archs) != 1 || manifest.Data.Archs[0] != arch {
			t.Errorf("archs = %v, want [%s]", manifest.Data.Archs, arch)
		}
		for _, pkg := range manifest.Data.Packages {
			if pkg.Arch != arch {
				t.Errorf("%s manifest contains %s entry", arch, pkg.Arch)
			}
		}
	}
}

func TestNewMergedMultiArchDeduplicatesNoarch(t *testing.T) {
	dir := t.TempDir()
	metas := []dnfapi.PackageMeta{{
		Name: "tzdata", Epoch: "0", Version: "2025a", Release: "1", Arch: "noarch",
		RepoID: "fedora", ChecksumType: 3, ChecksumDigest: "ddd",
		SourceRPM: "tzdata-2025a-1.src.rpm", SourceName: "tzdata",
	}}
	resolver := &fakeResolver{metas: metas}
	deps := testDeps(resolver, &fakeTransactor{})

	cfg := Config{
		Subcommand:   CmdNew,
		InputPath:    writeInputDoc(t, dir, []string{"tzdata"}, nil),
		ManifestPath: filepath.Join(dir, "packages.manifest.yaml"),
		Archs:        []string{"x86_64", "aarch64"},
	}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	manifest, err := models.ParseManifest(cfg.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(manifest.Data.Packages) != 1 {
		t.Errorf("noarch entry duplicated: %d entries", len(manifest.Data.Packages))
	}
	if len(manifest.Data.Archs) != 2 {
		t.Errorf("archs = %v", manifest.Data.Archs)
	}
}

func TestConfigureMissingManifestIsFatal(t *testing.T) {
	cfg := Config{
		Subcommand:   CmdDownload,
		ManifestPath: filepath.Join(t.TempDir(), "absent.yaml"),
	}
	cmd := New(cfg, testDeps(&fakeResolver{}, &fakeTransactor{}))

	err := cmd.Configure()
	if err == nil {
		t.Fatal("Configure accepted a missing manifest")
	}
	var merr *models.ManifestError
	if !errors.As(err, &merr) || merr.Type != models.ErrConfig {
		t.Fatalf("wrong error: %v", err)
	}
}

func TestConfigureMissingInputUsesDefaultName(t *testing.T) {
	// Without specs the input file is required; the error names the
	// default path.
	cfg := Config{Subcommand: CmdNew}
	cmd := New(cfg, testDeps(&fakeResolver{}, &fakeTransactor{}))
	cmd.cfg.InputPath = filepath.Join(t.TempDir(), DefaultInputFilename)

	err := cmd.Configure()
	if err == nil {
		t.Fatal("Configure accepted a missing input file")
	}
	if !strings.Contains(err.Error(), DefaultInputFilename) {
		t.Errorf("error %q does not name the input file", err)
	}
}

func TestConfigureMalformedManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packages.manifest.yaml")
	os.WriteFile(path, []byte("document: something-else\nversion: \"0.0.2\"\n"), 0644)

	cfg := Config{Subcommand: CmdInstall, ManifestPath: path}
	cmd := New(cfg, testDeps(&fakeResolver{}, &fakeTransactor{}))

	err := cmd.Configure()
	var merr *models.ManifestError
	if !errors.As(err, &merr) || merr.Type != models.ErrMalformedDocument {
		t.Fatalf("wrong error: %v", err)
	}
}

func TestInstallRejectsMultipleArchs(t *testing.T) {
	dir := t.TempDir()
	manifest := models.NewManifest()
	manifest.Data.Archs = []string{"x86_64", "aarch64"}
	path := filepath.Join(dir, "packages.manifest.yaml")
	if err := models.WriteManifest(path, manifest); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Subcommand: CmdInstall, ManifestPath: path}
	cmd := New(cfg, testDeps(&fakeResolver{}, &fakeTransactor{}))

	err := cmd.Configure()
	var merr *models.ManifestError
	if !errors.As(err, &merr) || merr.Type != models.ErrConfig {
		t.Fatalf("wrong error: %v", err)
	}
}

func replayManifest(t *testing.T, dir string) string {
	t.Helper()
	manifest := models.NewManifest()
	manifest.Data = models.ManifestData{
		Archs: []string{"x86_64"},
		Repositories: []models.Repository{
			{ID: "fedora", Baseurl: []string{"http://example.com/$arch/os"}},
		},
		Packages: []models.Package{
			{
				Nevra:    models.Nevra{Name: "bash", Epoch: "0", Version: "5.2", Release: "1", Arch: "x86_64"},
				Checksum: models.Checksum{Method: models.ChecksumSHA256, Digest: "bbb"},
				RepoID:   "fedora",
			},
			{
				Nevra:    models.Nevra{Name: "zlib", Epoch: "0", Version: "1.3", Release: "2", Arch: "x86_64"},
				Checksum: models.Checksum{Method: models.ChecksumSHA256, Digest: "aaa"},
				RepoID:   "fedora",
			},
		},
		Modules: []models.Module{{Name: "nodejs", Stream: "20"}},
	}
	path := filepath.Join(dir, "packages.manifest.yaml")
	if err := models.WriteManifest(path, manifest); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInstallAttemptsEveryPackage(t *testing.T) {
	dir := t.TempDir()
	path := replayManifest(t, dir)

	resolver := &fakeResolver{metas: testMetas()}
	transactor := &fakeTransactor{failOn: map[string]error{"bash": errors.New("conflict")}}
	modules := &fakeModules{}
	deps := testDeps(resolver, transactor)
	deps.Modules = modules

	cfg := Config{Subcommand: CmdInstall, ManifestPath: path}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	err := cmd.Run(context.Background())
	if err == nil {
		t.Fatal("Run swallowed the per-package failure")
	}
	if !strings.Contains(err.Error(), "bash") {
		t.Errorf("error %q does not name the failed package", err)
	}

	// The surviving entry was still attempted and its side effect landed.
	if len(transactor.installed) != 1 || !strings.HasPrefix(transactor.installed[0], "zlib") {
		t.Errorf("installed = %v", transactor.installed)
	}

	// Manifest modules are enabled before the transaction.
	if len(modules.enabled) != 1 || modules.enabled[0][0] != "nodejs:20" {
		t.Errorf("modules enabled = %v", modules.enabled)
	}
}

func TestNewRecordsReinstallAction(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{metas: testMetas()}
	deps := testDeps(resolver, &fakeTransactor{})

	cfg := Config{
		Subcommand:   CmdNew,
		InputPath:    writeInputDoc(t, dir, []string{"bash"}, []string{"zlib"}),
		ManifestPath: filepath.Join(dir, "packages.manifest.yaml"),
	}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	manifest, err := models.ParseManifest(cfg.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(manifest.Data.Packages) != 2 {
		t.Fatalf("packages = %d", len(manifest.Data.Packages))
	}
	for _, pkg := range manifest.Data.Packages {
		switch pkg.Name {
		case "bash":
			if pkg.Action != models.ActionInstall {
				t.Errorf("bash action = %q", pkg.Action)
			}
		case "zlib":
			if pkg.Action != models.ActionReinstall {
				t.Errorf("zlib action = %q, want reinstall", pkg.Action)
			}
		}
	}
}

func TestInstallDispatchesRecordedActions(t *testing.T) {
	dir := t.TempDir()
	manifest := models.NewManifest()
	manifest.Data = models.ManifestData{
		Archs: []string{"x86_64"},
		Repositories: []models.Repository{
			{ID: "fedora", Baseurl: []string{"http://example.com/$arch/os"}},
		},
		Packages: []models.Package{
			{
				Nevra:    models.Nevra{Name: "bash", Epoch: "0", Version: "5.2", Release: "1", Arch: "x86_64"},
				Checksum: models.Checksum{Method: models.ChecksumSHA256, Digest: "bbb"},
				RepoID:   "fedora",
			},
			{
				Nevra:    models.Nevra{Name: "zlib", Epoch: "0", Version: "1.3", Release: "2", Arch: "x86_64"},
				Checksum: models.Checksum{Method: models.ChecksumSHA256, Digest: "aaa"},
				RepoID:   "fedora",
				Action:   models.ActionReinstall,
			},
		},
	}
	path := filepath.Join(dir, "packages.manifest.yaml")
	if err := models.WriteManifest(path, manifest); err != nil {
		t.Fatal(err)
	}

	transactor := &fakeTransactor{}
	deps := testDeps(&fakeResolver{metas: testMetas()}, transactor)

	cfg := Config{Subcommand: CmdInstall, ManifestPath: path}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(transactor.installed) != 1 || !strings.HasPrefix(transactor.installed[0], "bash") {
		t.Errorf("installed = %v", transactor.installed)
	}
	if len(transactor.reinstalled) != 1 || !strings.HasPrefix(transactor.reinstalled[0], "zlib") {
		t.Errorf("reinstalled = %v", transactor.reinstalled)
	}
}

func sourceManifest(t *testing.T, dir string) string {
	t.Helper()
	manifest := models.NewManifest()
	manifest.Data = models.ManifestData{
		Archs: []string{"x86_64"},
		Repositories: []models.Repository{
			{ID: "fedora", Baseurl: []string{"http://example.com/$arch/os"}},
		},
		Packages: []models.Package{
			{
				Nevra:    models.Nevra{Name: "bash", Epoch: "0", Version: "5.2", Release: "1", Arch: "x86_64"},
				Checksum: models.Checksum{Method: models.ChecksumSHA256, Digest: "bbb"},
				RepoID:   "fedora",
			},
			{
				Nevra:    models.Nevra{Name: "bash", Epoch: "0", Version: "5.2", Release: "1", Arch: "src"},
				Checksum: models.Checksum{Method: models.ChecksumSHA256, Digest: "eee"},
				RepoID:   "fedora",
			},
		},
	}
	path := filepath.Join(dir, "packages.manifest.yaml")
	if err := models.WriteManifest(path, manifest); err != nil {
		t.Fatal(err)
	}
	return path
}

func srcMetas() []dnfapi.PackageMeta {
	return append(testMetas(), dnfapi.PackageMeta{
		Name: "bash", Epoch: "0", Version: "5.2", Release: "1", Arch: "src",
		RepoID: "fedora", Location: "Packages/b/bash-5.2-1.src.rpm",
		ChecksumType: 3, ChecksumDigest: "eee",
	})
}

func TestInstallSkipsSourceEntries(t *testing.T) {
	dir := t.TempDir()
	path := sourceManifest(t, dir)

	transactor := &fakeTransactor{}
	deps := testDeps(&fakeResolver{metas: srcMetas()}, transactor)

	cfg := Config{Subcommand: CmdInstall, ManifestPath: path}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(transactor.installed) != 1 || !strings.HasSuffix(transactor.installed[0], ".x86_64") {
		t.Errorf("installed = %v, want only the binary entry", transactor.installed)
	}
}

func TestDownloadIncludesSourceEntries(t *testing.T) {
	dir := t.TempDir()
	path := sourceManifest(t, dir)

	transactor := &fakeTransactor{}
	deps := testDeps(&fakeResolver{metas: srcMetas()}, transactor)

	cfg := Config{
		Subcommand:   CmdDownload,
		ManifestPath: path,
		DestDir:      filepath.Join(dir, "bootstrap_repo"),
	}
	cmd := New(cfg, deps)
	cmd.VerifyDownloads = false
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(transactor.downloaded) != 2 {
		t.Errorf("downloaded = %v, want binary and source entries", transactor.downloaded)
	}
}

func TestDownloadCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	path := replayManifest(t, dir)

	resolver := &fakeResolver{metas: testMetas()}
	transactor := &fakeTransactor{failOn: map[string]error{"zlib": errors.New("404")}}
	deps := testDeps(resolver, transactor)

	cfg := Config{
		Subcommand:   CmdDownload,
		ManifestPath: path,
		DestDir:      filepath.Join(dir, "bootstrap_repo"),
	}
	cmd := New(cfg, deps)
	cmd.VerifyDownloads = false
	if err := cmd.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	err := cmd.Run(context.Background())
	if err == nil {
		t.Fatal("Run swallowed the download failure")
	}
	if !strings.Contains(err.Error(), "zlib") {
		t.Errorf("error %q does not name the failed package", err)
	}
	if len(transactor.downloaded) != 1 || !strings.HasPrefix(transactor.downloaded[0], "bash") {
		t.Errorf("downloaded = %v", transactor.downloaded)
	}
}

func TestRepoModePrecedence(t *testing.T) {
	dir := t.TempDir()

	// use-system wins over a present input document.
	repoSet := &fakeRepoSet{}
	deps := testDeps(&fakeResolver{metas: testMetas()}, &fakeTransactor{})
	deps.Repos = repoSet
	cfg := Config{
		Subcommand:     CmdNew,
		InputPath:      writeInputFile(t, dir),
		ManifestPath:   filepath.Join(dir, "packages.manifest.yaml"),
		UseSystemRepos: true,
	}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(repoSet.added) != 0 {
		t.Errorf("use-system still registered repositories: %v", repoSet.added)
	}

	// Without the flag the input document's repositories register.
	repoSet = &fakeRepoSet{}
	deps.Repos = repoSet
	cfg.UseSystemRepos = false
	cmd = New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(repoSet.added) != 1 || repoSet.added[0] != "fedora" {
		t.Errorf("input repositories not registered: %v", repoSet.added)
	}
}

func TestModuleDumpWritten(t *testing.T) {
	dir := t.TempDir()
	modules := &fakeModules{dumpDocs: []string{
		"---\ndocument: modulemd\nname: nodejs",
		"---\ndocument: modulemd\nname: ruby",
	}}
	deps := testDeps(&fakeResolver{metas: testMetas()}, &fakeTransactor{})
	deps.Modules = modules

	cfg := Config{
		Subcommand:     CmdNew,
		InputPath:      writeInputFile(t, dir),
		ManifestPath:   filepath.Join(dir, "packages.manifest.yaml"),
		ModuleDumpPath: filepath.Join(dir, "modules_dump.modulemd.yaml"),
	}
	cmd := New(cfg, deps)
	if err := cmd.Configure(); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(cfg.ModuleDumpPath)
	if err != nil {
		t.Fatalf("module dump not written: %v", err)
	}
	if !strings.Contains(string(data), "\n"+ModularDataSeparator+"\n") {
		t.Errorf("documents not separated by %q:\n%s", ModularDataSeparator, data)
	}
}

func TestPerArchManifestPath(t *testing.T) {
	got := perArchManifestPath("packages.manifest.yaml", "x86_64")
	if got != "packages.manifest.x86_64.yaml" {
		t.Errorf("perArchManifestPath = %q", got)
	}
	if got := perArchManifestPath("manifest", "s390x"); got != "manifest.s390x" {
		t.Errorf("perArchManifestPath without extension = %q", got)
	}
}
