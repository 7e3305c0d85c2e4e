package media

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewImagePublicID returns img_<unix-ms>_<9 random base36 chars>.
func NewImagePublicID(now time.Time) string {
	return fmt.Sprintf("img_%d_%s", now.UnixMilli(), randomBase36(9))
}

// NewDocumentPublicID returns doc_<unix-ms>_<sanitized filename>.
func NewDocumentPublicID(now time.Time, filename string) string {
	return fmt.Sprintf("doc_%d_%s", now.UnixMilli(), SanitizeFilename(filename))
}

// PublicIDFor generates the public id for obj when the caller did not set one.
func PublicIDFor(obj Object, now time.Time) string {
	if obj.PublicID != "" {
		return obj.PublicID
	}
	if obj.Kind == KindDocument {
		return NewDocumentPublicID(now, obj.Filename)
	}
	return NewImagePublicID(now)
}

// SanitizeFilename keeps letters, digits, dot, dash and underscore; everything else becomes "_".
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func randomBase36(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range out {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = base36[i%len(base36)]
			continue
		}
		out[i] = base36[v.Int64()]
	}
	return string(out)
}
