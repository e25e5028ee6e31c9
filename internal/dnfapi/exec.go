package dnfapi

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// ExecTransactor drives the host package manager binary for install and
// reinstall transactions. Downloads are not its concern; the repodata
// backend handles those.
type ExecTransactor struct {
	// Binary is the package manager executable, "dnf" by default.
	Binary string

	repoArgs []string
}

func (t *ExecTransactor) binary() string {
	if t.Binary == "" {
		return "dnf"
	}
	return t.Binary
}

// AddRepo threads a registered repository through to the transaction via
// --repofrompath, limited to the registered ids with --repo, so the host
// transaction resolves against the same repositories the run registered.
// repofrompath only takes a concrete base URL.
func (t *ExecTransactor) AddRepo(ctx context.Context, id string, cfg RepoConfig) error {
	if len(cfg.BaseURLs) == 0 {
		return fmt.Errorf(
			"repository %s: install replay needs a baseurl, %s cannot take a metalink or mirrorlist on the command line",
			id, t.binary())
	}
	t.repoArgs = append(t.repoArgs,
		fmt.Sprintf("--repofrompath=%s,%s", id, cfg.BaseURLs[0]),
		"--repo="+id)
	return nil
}

func (t *ExecTransactor) run(args ...string) error {
	args = append(append([]string{}, t.repoArgs...), args...)
	cmd := exec.Command(t.binary(), args...)
	logrus.Debugf("Running: %s %s", t.binary(), strings.Join(args, " "))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %v: %s", t.binary(), strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Install requests installation of one package spec.
func (t *ExecTransactor) Install(spec string) error {
	return t.run("install", "-y", spec)
}

// Reinstall requests reinstallation of one package spec.
func (t *ExecTransactor) Reinstall(spec string) error {
	return t.run("reinstall", "-y", spec)
}

// Download is not supported by the exec transactor.
func (t *ExecTransactor) Download(ctx context.Context, pkg PackageMeta, destdir string) (string, error) {
	return "", fmt.Errorf("download is not supported by the %s transactor", t.binary())
}

// ExecModuleManager drives the host package manager's module subcommands.
type ExecModuleManager struct {
	Binary string
}

func (m *ExecModuleManager) binary() string {
	if m.Binary == "" {
		return "dnf"
	}
	return m.Binary
}

func (m *ExecModuleManager) run(action string, modules []string) error {
	args := append([]string{"module", action, "-y"}, modules...)
	cmd := exec.Command(m.binary(), args...)
	logrus.Debugf("Running: %s %s", m.binary(), strings.Join(args, " "))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s module %s: %v: %s", m.binary(), action, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Enable enables the given module streams.
func (m *ExecModuleManager) Enable(modules []string) error {
	if len(modules) == 0 {
		return nil
	}
	return m.run("enable", modules)
}

// Disable disables the given module streams.
func (m *ExecModuleManager) Disable(modules []string) error {
	if len(modules) == 0 {
		return nil
	}
	return m.run("disable", modules)
}

// Dump returns the modulemd documents of enabled modules. The exec backend
// has no structured access to modulemd, so it reports none.
func (m *ExecModuleManager) Dump() ([]string, error) {
	return nil, nil
}
