package repodata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// fetchURL retrieves the contents of an http(s):// or file:// URL. Bare
// paths are treated as local files.
func fetchURL(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
		}
		return io.ReadAll(resp.Body)
	case "file":
		return os.ReadFile(u.Path)
	case "":
		return os.ReadFile(rawURL)
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q in %q", u.Scheme, rawURL)
	}
}

// decompress picks the decompressor from the file extension. Repodata
// locations name their compression in the href.
func decompress(data []byte, href string) ([]byte, error) {
	switch {
	case strings.HasSuffix(href, ".gz"):
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case strings.HasSuffix(href, ".xz"):
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	default:
		return data, nil
	}
}

// joinURL appends a relative href to a repository base URL.
func joinURL(base, href string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}

// loadKeyring reads an armored or binary public keyring from disk.
func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return nil, serr
		}
		keyring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read keyring %s: %w", path, err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("no keys found in %s", path)
	}
	return keyring, nil
}

// verifyDetached checks an armored detached signature over data.
func verifyDetached(keyring openpgp.EntityList, data, signature []byte) error {
	_, err := openpgp.CheckArmoredDetachedSignature(
		keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		return fmt.Errorf("repomd signature verification failed: %w", err)
	}
	return nil
}

// ensureDir creates destdir if missing, as the download target.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Clean(path), 0755)
}
