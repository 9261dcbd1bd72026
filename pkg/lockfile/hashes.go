package lockfile

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/matzehuels/flowc/pkg/errors"
)

// HashesFile is the name of the bundle hash lock file.
const HashesFile = "hashes.lock"

// Hashes maps bundle paths to the hex SHA-256 of their contents.
type Hashes map[string]string

// HashFiles reads and hashes every file in paths.
func HashFiles(paths []string) (Hashes, error) {
	out := make(Hashes, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", p, err)
		}
		out[p] = Sum(data)
	}
	return out, nil
}

// Sum returns the hex SHA-256 of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Paths returns the bundle paths in sorted order.
func (h Hashes) Paths() []string {
	out := make([]string, 0, len(h))
	for p := range h {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarshalText renders one "path:hash" line per bundle, sorted by path,
// with no trailing newline.
func (h Hashes) MarshalText() ([]byte, error) {
	lines := make([]string, 0, len(h))
	for _, p := range h.Paths() {
		lines = append(lines, p+":"+h[p])
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// ParseHashes decodes hashes.lock contents. The hash is taken after the last
// colon, so paths may themselves contain colons.
func ParseHashes(data []byte) (Hashes, error) {
	out := Hashes{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		i := strings.LastIndexByte(text, ':')
		if i <= 0 || i == len(text)-1 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s line %d: want path:hash, got %q", HashesFile, line, text)
		}
		out[text[:i]] = text[i+1:]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteHashes writes h to path in hashes.lock form.
func WriteHashes(path string, h Hashes) error {
	data, _ := h.MarshalText()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadHashes reads a hashes.lock file.
func ReadHashes(path string) (Hashes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, err
	}
	return ParseHashes(data)
}
