package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// StaticDir is where /static is served from
const StaticDir = "static"

// versionedAssets are fingerprinted at startup for cache busting
var versionedAssets = []string{"css/style.css", "js/app.js"}

var (
	assetMu       sync.RWMutex
	assetVersions = map[string]string{}
)

// InitAssetVersions hashes the versioned assets under StaticDir
func InitAssetVersions() {
	LoadAssetVersions(StaticDir, versionedAssets...)
}

// LoadAssetVersions replaces the fingerprints with hashes of the named
// files under dir. Unreadable files are skipped.
func LoadAssetVersions(dir string, names ...string) {
	versions := make(map[string]string, len(names))
	for _, name := range names {
		if v := fileHash(filepath.Join(dir, filepath.FromSlash(name))); v != "" {
			versions[name] = v
		}
	}
	assetMu.Lock()
	assetVersions = versions
	assetMu.Unlock()
	zap.L().Info("asset versions initialized", zap.Any("versions", versions))
}

// fileHash is the first 8 hex characters of the file's SHA-256
func fileHash(p string) string {
	file, err := os.Open(p)
	if err != nil {
		zap.L().Warn("failed to open asset for hashing", zap.String("path", p), zap.Error(err))
		return ""
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		zap.L().Warn("failed to hash asset", zap.String("path", p), zap.Error(err))
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}

// AssetURL is the public URL of a static asset with its fingerprint.
// Assets that were never hashed get v=1.
func AssetURL(name string) string {
	assetMu.RLock()
	v, ok := assetVersions[name]
	assetMu.RUnlock()
	if !ok {
		v = "1"
	}
	return path.Join("/", StaticDir, name) + "?v=" + v
}
