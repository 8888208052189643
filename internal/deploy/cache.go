package deploy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"dotdeploy/internal/shared/util"

	"github.com/BurntSushi/toml"
)

const cacheFormatVersion = 1

// Cache is the record of the last deployment, written to the cache file.
type Cache struct {
	Version  int     `toml:"version"`
	RunAt    string  `toml:"run_at"`
	Deployed []Entry `toml:"deployed"`
}

type Entry struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
	Size   int64  `toml:"size"`
	SHA256 string `toml:"sha256"`
}

func LoadCache(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Cache
	if _, err := toml.Decode(string(data), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Cache) Save(path string) error {
	if c.Version == 0 {
		c.Version = cacheFormatVersion
	}
	if c.RunAt == "" {
		c.RunAt = time.Now().UTC().Format(time.RFC3339)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	return util.WriteFileWithDirs(path, buf.Bytes(), 0o644)
}

// Lookup returns the entry recorded for source.
func (c *Cache) Lookup(source string) (Entry, bool) {
	for _, e := range c.Deployed {
		if e.Source == source {
			return e, true
		}
	}
	return Entry{}, false
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
