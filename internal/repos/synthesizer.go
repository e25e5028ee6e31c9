// Package repos builds the live repository configuration from a document's
// repository descriptors, or leaves the host's own configuration in place.
package repos

import (
	"context"

	"github.com/ralt/pkgmanifest/internal/dnfapi"
	"github.com/ralt/pkgmanifest/internal/models"
	"github.com/ralt/pkgmanifest/internal/nevra"
	"github.com/sirupsen/logrus"
)

// Mode selects where the live repository configuration comes from
type Mode int

const (
	// ModeSystem leaves the host's already-configured repositories untouched.
	ModeSystem Mode = iota
	// ModeInput registers the repositories declared by an input document.
	ModeInput
	// ModeManifest registers the repositories pinned by a manifest document.
	ModeManifest
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeSystem:
		return "system"
	case ModeInput:
		return "input"
	case ModeManifest:
		return "manifest"
	default:
		return "unknown"
	}
}

// Setup registers every descriptor into the live repository set. In system
// mode it does nothing. Each descriptor contributes exactly one locator,
// honored in baseurl > metalink > mirrorlist order when more than one is
// mistakenly present. arch, when non-empty, substitutes the portable
// architecture placeholder in the locator URLs for replay. Registration
// errors propagate unchanged.
func Setup(ctx context.Context, set dnfapi.RepoSet, mode Mode, repositories []models.Repository, arch string) error {
	if mode == ModeSystem {
		logrus.Debug("Using system repositories, no registration performed")
		return nil
	}

	for _, repo := range repositories {
		cfg := dnfapi.RepoConfig{}
		switch repo.Locator() {
		case models.LocatorBaseurl:
			for _, url := range repo.Baseurl {
				cfg.BaseURLs = append(cfg.BaseURLs, concretize(url, arch))
			}
		case models.LocatorMetalink:
			cfg.Metalink = concretize(repo.Metalink, arch)
		case models.LocatorMirrorlist:
			cfg.Mirrorlist = concretize(repo.Mirrorlist, arch)
		}

		logrus.Debugf("Registering repository %s from %s document", repo.ID, mode)
		if err := set.AddRepo(ctx, repo.ID, cfg); err != nil {
			return err
		}
	}
	return nil
}

func concretize(url, arch string) string {
	if arch == "" {
		return url
	}
	return nevra.ConcretizeURL(url, arch)
}
