package repodata

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ralt/pkgmanifest/internal/checksum"
	"github.com/ralt/pkgmanifest/internal/dnfapi"
	"github.com/sirupsen/logrus"
)

// Backend implements the repository set, resolver and download halves of
// the package manager boundary against plain repodata over http(s) or
// file URLs.
type Backend struct {
	client  *http.Client
	keyring openpgp.EntityList
	repos   []*repo
}

type repo struct {
	id       string
	baseURL  string
	packages []dnfapi.PackageMeta
	loaded   bool
}

// Option configures a Backend
type Option func(*Backend)

// WithHTTPClient overrides the HTTP client used for metadata and package
// fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Backend) { b.client = client }
}

// WithKeyring enables detached signature verification of repomd.xml
// against the public keys at path.
func WithKeyring(path string) Option {
	return func(b *Backend) {
		keyring, err := loadKeyring(path)
		if err != nil {
			logrus.Warnf("GPG check disabled: %v", err)
			return
		}
		b.keyring = keyring
	}
}

// NewBackend creates an empty backend; repositories are registered per run.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{client: http.DefaultClient}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddRepo registers one repository. Metalink and mirrorlist locators are
// chased down to a concrete base URL at registration time.
func (b *Backend) AddRepo(ctx context.Context, id string, cfg dnfapi.RepoConfig) error {
	if id == "" {
		return fmt.Errorf("repository id is empty")
	}
	for _, existing := range b.repos {
		if existing.id == id {
			return fmt.Errorf("repository %s is already registered", id)
		}
	}

	var baseURL string
	switch {
	case len(cfg.BaseURLs) > 0:
		baseURL = cfg.BaseURLs[0]
	case cfg.Metalink != "":
		url, err := b.resolveMetalink(ctx, cfg.Metalink)
		if err != nil {
			return fmt.Errorf("repository %s: %w", id, err)
		}
		baseURL = url
	case cfg.Mirrorlist != "":
		url, err := b.resolveMirrorlist(ctx, cfg.Mirrorlist)
		if err != nil {
			return fmt.Errorf("repository %s: %w", id, err)
		}
		baseURL = url
	default:
		return fmt.Errorf("repository %s has no baseurl, metalink or mirrorlist", id)
	}

	b.repos = append(b.repos, &repo{id: id, baseURL: baseURL})
	logrus.Debugf("Registered repository %s at %s", id, baseURL)
	return nil
}

// resolveMetalink picks the preferred http(s) mirror for repomd.xml out of
// a metalink document and strips the repodata suffix to get the base URL.
func (b *Backend) resolveMetalink(ctx context.Context, metalinkURL string) (string, error) {
	data, err := fetchURL(ctx, b.client, metalinkURL)
	if err != nil {
		return "", err
	}

	var ml metalink
	if err := xml.Unmarshal(data, &ml); err != nil {
		return "", fmt.Errorf("malformed metalink: %w", err)
	}

	var best *metalinkURLEntry
	for _, file := range ml.Files.Files {
		if file.Name != "repomd.xml" {
			continue
		}
		for _, u := range file.Resources.URLs {
			if u.Protocol != "http" && u.Protocol != "https" {
				continue
			}
			if best == nil || u.Preference > best.preference {
				best = &metalinkURLEntry{url: u.URL, preference: u.Preference}
			}
		}
	}
	if best == nil {
		return "", fmt.Errorf("metalink %s lists no usable mirrors", metalinkURL)
	}
	return strings.TrimSuffix(best.url, "/repodata/repomd.xml"), nil
}

type metalinkURLEntry struct {
	url        string
	preference int
}

// resolveMirrorlist takes the first non-comment line of a mirrorlist.
func (b *Backend) resolveMirrorlist(ctx context.Context, mirrorlistURL string) (string, error) {
	data, err := fetchURL(ctx, b.client, mirrorlistURL)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	return "", fmt.Errorf("mirrorlist %s is empty", mirrorlistURL)
}

// load fetches and parses a repository's primary metadata.
func (b *Backend) load(ctx context.Context, r *repo) error {
	if r.loaded {
		return nil
	}

	repomdURL := joinURL(r.baseURL, "repodata/repomd.xml")
	repomdData, err := fetchURL(ctx, b.client, repomdURL)
	if err != nil {
		return fmt.Errorf("repository %s: %w", r.id, err)
	}

	if b.keyring != nil {
		sig, err := fetchURL(ctx, b.client, repomdURL+".asc")
		if err != nil {
			return fmt.Errorf("repository %s: fetching repomd signature: %w", r.id, err)
		}
		if err := verifyDetached(b.keyring, repomdData, sig); err != nil {
			return fmt.Errorf("repository %s: %w", r.id, err)
		}
		logrus.Debugf("Repository %s repomd signature verified", r.id)
	}

	var md repomd
	if err := xml.Unmarshal(repomdData, &md); err != nil {
		return fmt.Errorf("repository %s: malformed repomd.xml: %w", r.id, err)
	}

	var primaryHref string
	for _, data := range md.Data {
		if data.Type == "primary" {
			primaryHref = data.Location.Href
			break
		}
	}
	if primaryHref == "" {
		return fmt.Errorf("repository %s: repomd.xml has no primary entry", r.id)
	}

	raw, err := fetchURL(ctx, b.client, joinURL(r.baseURL, primaryHref))
	if err != nil {
		return fmt.Errorf("repository %s: %w", r.id, err)
	}
	xmlData, err := decompress(raw, primaryHref)
	if err != nil {
		return fmt.Errorf("repository %s: decompressing %s: %w", r.id, primaryHref, err)
	}

	var primary primaryMetadata
	if err := xml.Unmarshal(xmlData, &primary); err != nil {
		return fmt.Errorf("repository %s: malformed primary metadata: %w", r.id, err)
	}

	for _, pkg := range primary.Packages {
		meta := dnfapi.PackageMeta{
			Name:           pkg.Name,
			Epoch:          pkg.Version.Epoch,
			Version:        pkg.Version.Ver,
			Release:        pkg.Version.Rel,
			Arch:           pkg.Arch,
			RepoID:         r.id,
			Location:       pkg.Location.Href,
			Size:           pkg.Size.Package,
			SourceRPM:      pkg.Format.SourceRPM,
			ChecksumDigest: pkg.Checksum.Value,
		}
		if code, ok := primaryChecksumCodes[pkg.Checksum.Type]; ok {
			meta.ChecksumType = code
		}
		r.packages = append(r.packages, meta)
	}

	r.loaded = true
	logrus.Debugf("Repository %s: loaded %d packages", r.id, len(r.packages))
	return nil
}

// primaryChecksumCodes maps the checksum type tokens used in primary
// metadata to the resolver's native hash IDs.
var primaryChecksumCodes = map[string]int{
	"md5":    checksum.ResolverMD5,
	"sha1":   checksum.ResolverSHA1,
	"sha":    checksum.ResolverSHA1,
	"sha256": checksum.ResolverSHA256,
	"sha384": checksum.ResolverSHA384,
	"sha512": checksum.ResolverSHA512,
}

// Resolve answers a spec query from the loaded repositories: for each spec,
// the newest matching build per architecture wins. Specs match on exact
// package name, or on exact NEVRA for pinned replay queries.
func (b *Backend) Resolve(ctx context.Context, req dnfapi.ResolveRequest) ([]dnfapi.PackageMeta, error) {
	for _, r := range b.repos {
		if err := b.load(ctx, r); err != nil {
			return nil, err
		}
	}

	archs := map[string]bool{"noarch": true}
	for _, arch := range req.Archs {
		archs[arch] = true
	}
	if req.IncludeSource {
		archs["src"] = true
	}

	var resolved []dnfapi.PackageMeta
	for _, spec := range req.Specs {
		// best build per architecture
		best := map[string]dnfapi.PackageMeta{}
		for _, r := range b.repos {
			for _, pkg := range r.packages {
				if !archs[pkg.Arch] {
					continue
				}
				if pkg.Name != spec && pkg.NEVRA() != spec {
					continue
				}
				if current, ok := best[pkg.Arch]; !ok || compareEVR(pkg, current) > 0 {
					best[pkg.Arch] = pkg
				}
			}
		}
		if len(best) == 0 {
			return nil, fmt.Errorf("no match for spec %q", spec)
		}
		for _, pkg := range best {
			resolved = append(resolved, pkg)
		}
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].NEVRA() < resolved[j].NEVRA()
	})
	return resolved, nil
}

// Install is not supported by the repodata backend.
func (b *Backend) Install(spec string) error {
	return fmt.Errorf("install is not supported by the repodata backend")
}

// Reinstall is not supported by the repodata backend.
func (b *Backend) Reinstall(spec string) error {
	return fmt.Errorf("reinstall is not supported by the repodata backend")
}

// Download fetches one resolved package into destdir and returns the local
// path.
func (b *Backend) Download(ctx context.Context, pkg dnfapi.PackageMeta, destdir string) (string, error) {
	var baseURL string
	for _, r := range b.repos {
		if r.id == pkg.RepoID {
			baseURL = r.baseURL
			break
		}
	}
	if baseURL == "" {
		return "", fmt.Errorf("package %s references unknown repository %s", pkg.NEVRA(), pkg.RepoID)
	}

	if err := ensureDir(destdir); err != nil {
		return "", err
	}

	data, err := fetchURL(ctx, b.client, joinURL(baseURL, pkg.Location))
	if err != nil {
		return "", err
	}

	dest := filepath.Join(destdir, filepath.Base(pkg.Location))
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", err
	}
	return dest, nil
}
