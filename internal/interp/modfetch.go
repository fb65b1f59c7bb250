package interp

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-getter"
	"github.com/hashicorp/go-safetemp"

	"github.com/flowave-io/hclsh/internal/encoding/jsonx"
	"github.com/flowave-io/hclsh/pkg/log"
)

const manifestFile = "manifest.json"

// manifest records what has been fetched into a cache directory.
type manifest struct {
	Entries map[string]manifestEntry `json:"entries"`
}

type manifestEntry struct {
	Source  string    `json:"source"`
	Dir     string    `json:"dir"`
	Fetched time.Time `json:"fetched"`
}

// fetchSource returns a local filesystem path for a module source.
// Local paths are returned as absolute paths. Anything else is downloaded
// with go-getter into cacheDir, once per distinct source string.
func fetchSource(ctx context.Context, source, cacheDir string) (string, error) {
	s := strings.TrimSpace(source)
	if s == "" {
		return "", fmt.Errorf("empty module source")
	}
	if isLikelyLocalPath(s) {
		abs, err := filepath.Abs(strings.TrimPrefix(s, "file://"))
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("local module path not found: %s", abs)
		}
		return abs, nil
	}
	if cacheDir == "" {
		return "", fmt.Errorf("cache_dir required for remote source %q", s)
	}
	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	m := readManifest(cacheDir)
	key := fingerprint(s)
	if e, ok := m.Entries[key]; ok {
		if _, err := os.Stat(e.Dir); err == nil {
			return e.Dir, nil
		}
	}
	dest := filepath.Join(cacheDir, key)

	// safetemp hands back a path inside a fresh directory; the getter
	// creates it and the closer removes the parent.
	tmpDir, cleanup, err := safetemp.Dir(cacheDir, "modfetch-")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer func() { _ = cleanup.Close() }()

	client := &getter.Client{
		Ctx:  ctx,
		Src:  s,
		Dst:  tmpDir,
		Mode: getter.ClientModeAny,
		Getters: map[string]getter.Getter{
			"http":  &getter.HttpGetter{Netrc: true, Client: defaultHTTPClient()},
			"https": &getter.HttpGetter{Netrc: true, Client: defaultHTTPClient()},
			"git":   &getter.GitGetter{},
			"file":  &getter.FileGetter{},
		},
	}
	if err := client.Get(); err != nil {
		return "", fmt.Errorf("fetch module source: %w", err)
	}
	_ = os.RemoveAll(dest)
	if err := os.Rename(tmpDir, dest); err != nil {
		return "", fmt.Errorf("cache move: %w", err)
	}
	m.Entries[key] = manifestEntry{Source: s, Dir: dest, Fetched: time.Now().UTC()}
	if err := writeManifest(cacheDir, m); err != nil {
		log.Warn("module manifest not updated", "dir", cacheDir, "err", err)
	}
	log.Debug("fetched module source", "source", s, "dir", dest)
	return dest, nil
}

func readManifest(cacheDir string) manifest {
	m := manifest{Entries: map[string]manifestEntry{}}
	b, err := os.ReadFile(filepath.Join(cacheDir, manifestFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("cannot read module manifest", "err", err)
		}
		return m
	}
	if err := jsonx.Unmarshal(b, &m); err != nil {
		log.Warn("ignoring corrupt module manifest", "dir", cacheDir, "err", err)
		return manifest{Entries: map[string]manifestEntry{}}
	}
	if m.Entries == nil {
		m.Entries = map[string]manifestEntry{}
	}
	return m
}

func writeManifest(cacheDir string, m manifest) error {
	b, err := jsonx.MarshalIndent(m)
	if err != nil {
		return err
	}
	tmp := filepath.Join(cacheDir, manifestFile+".tmp")
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(cacheDir, manifestFile))
}

func defaultHTTPClient() *http.Client {
	return cleanhttp.DefaultClient()
}

func fingerprint(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

func isLikelyLocalPath(s string) bool {
	if strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") || strings.HasPrefix(s, "/") {
		return true
	}
	return strings.HasPrefix(s, "file://")
}
