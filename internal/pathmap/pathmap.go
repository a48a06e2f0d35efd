package pathmap

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/text/cases"

	"palette/internal/config"
	"palette/internal/services"
)

const remoteSep = '/'

// Mapping pairs a local directory prefix with its remote counterpart.
type Mapping struct {
	Local  string
	Remote string
}

// Option customizes a Translator.
type Option func(*Translator)

// WithCaseInsensitiveLocal overrides the platform default for local prefix
// matching.
func WithCaseInsensitiveLocal(enabled bool) Option {
	return func(t *Translator) { t.foldLocal = enabled }
}

// WithLocalSeparator sets the local path separator. Only '/' and '\\' are
// meaningful. When the separator is '\\', forward slashes in local input are
// accepted as separators too.
func WithLocalSeparator(sep byte) Option {
	return func(t *Translator) { t.localSep = sep }
}

// Translator converts paths between the two namespaces.
type Translator struct {
	entries   []entry
	localSep  byte
	foldLocal bool
}

type entry struct {
	mapping     Mapping
	localParts  []string
	remoteParts []string
}

// New validates and normalizes the mapping table.
func New(mappings []Mapping, opts ...Option) (*Translator, error) {
	t := &Translator{
		localSep:  filepath.Separator,
		foldLocal: runtime.GOOS == "windows" || runtime.GOOS == "darwin",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	for i, m := range mappings {
		local := strings.TrimSpace(m.Local)
		remote := strings.TrimSpace(m.Remote)
		if local == "" || remote == "" {
			return nil, services.Wrap(services.ErrConfiguration, "pathmap", "load",
				fmt.Sprintf("mapping %d has an empty side", i), nil)
		}
		local = trimTrailing(t.normalizeLocal(local), t.localSep)
		remote = normalizeRemote(remote)
		if !strings.HasPrefix(remote, "/") {
			remote = "/" + remote
		}
		remote = trimTrailing(remote, remoteSep)

		t.entries = append(t.entries, entry{
			mapping:     Mapping{Local: local, Remote: remote},
			localParts:  prefixParts(local, t.localSep),
			remoteParts: prefixParts(remote, remoteSep),
		})
	}
	return t, nil
}

// FromConfig builds a translator from configured path mappings.
func FromConfig(mappings []config.PathMapping, opts ...Option) (*Translator, error) {
	converted := make([]Mapping, 0, len(mappings))
	for _, m := range mappings {
		converted = append(converted, Mapping{Local: m.Local, Remote: m.Remote})
	}
	return New(converted, opts...)
}

// Mappings returns the normalized mapping table in match order.
func (t *Translator) Mappings() []Mapping {
	out := make([]Mapping, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.mapping)
	}
	return out
}

// Len reports how many mappings are configured.
func (t *Translator) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// ToRemote returns the remote path for a local path. Paths outside every
// mapping come back with only separator normalization applied.
func (t *Translator) ToRemote(local string) string {
	normalized := t.normalizeLocal(local)
	parts := strings.Split(normalized, string(t.localSep))
	var fold func(string) string
	if t.foldLocal {
		caser := cases.Fold()
		fold = caser.String
	}
	for _, e := range t.entries {
		rest, ok := matchParts(parts, e.localParts, fold)
		if !ok {
			continue
		}
		return joinPrefix(e.mapping.Remote, rest, remoteSep)
	}
	if t.localSep == remoteSep {
		return normalized
	}
	return strings.ReplaceAll(normalized, string(t.localSep), string(remoteSep))
}

// ToLocal returns the local path for a remote path, or false when no mapping
// covers it.
func (t *Translator) ToLocal(remote string) (string, bool) {
	e, rest, ok := t.match(remote)
	if !ok {
		return "", false
	}
	return joinPrefix(e.mapping.Local, rest, t.localSep), true
}

// MatchRemote returns the first mapping whose remote prefix covers remote and
// the remainder below that prefix, relative and slash-separated.
func (t *Translator) MatchRemote(remote string) (Mapping, string, bool) {
	e, rest, ok := t.match(remote)
	if !ok {
		return Mapping{}, "", false
	}
	return e.mapping, strings.Join(rest, string(remoteSep)), true
}

func (t *Translator) match(remote string) (entry, []string, bool) {
	if t == nil {
		return entry{}, nil, false
	}
	parts := strings.Split(normalizeRemote(remote), string(remoteSep))
	for _, e := range t.entries {
		if rest, ok := matchParts(parts, e.remoteParts, nil); ok {
			return e, rest, true
		}
	}
	return entry{}, nil, false
}

func (t *Translator) normalizeLocal(p string) string {
	if t.localSep == '\\' {
		p = strings.ReplaceAll(p, "/", `\`)
	}
	return collapse(p, t.localSep)
}

func normalizeRemote(p string) string {
	return collapse(strings.ReplaceAll(p, `\`, "/"), remoteSep)
}

// collapse squeezes runs of sep into one, keeping a leading double separator.
func collapse(p string, sep byte) string {
	if p == "" {
		return p
	}
	var b strings.Builder
	b.Grow(len(p))
	i := 0
	if len(p) >= 2 && p[0] == sep && p[1] == sep {
		b.WriteByte(sep)
		b.WriteByte(sep)
		for i < len(p) && p[i] == sep {
			i++
		}
	}
	prevSep := false
	for ; i < len(p); i++ {
		c := p[i]
		if c == sep {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

func trimTrailing(p string, sep byte) string {
	for len(p) > 1 && p[len(p)-1] == sep {
		if p == string([]byte{sep, sep}) {
			break
		}
		p = p[:len(p)-1]
	}
	return p
}

func prefixParts(prefix string, sep byte) []string {
	return strings.Split(strings.TrimSuffix(prefix, string(sep)), string(sep))
}

// matchParts compares path segments so a prefix only matches on a separator
// boundary. A nil fold compares segments exactly.
func matchParts(path, prefix []string, fold func(string) string) ([]string, bool) {
	if len(path) < len(prefix) {
		return nil, false
	}
	for i, want := range prefix {
		got := path[i]
		if fold != nil {
			got, want = fold(got), fold(want)
		}
		if got != want {
			return nil, false
		}
	}
	return path[len(prefix):], true
}

func joinPrefix(prefix string, rest []string, sep byte) string {
	if len(rest) == 0 {
		return prefix
	}
	tail := strings.Join(rest, string(sep))
	if strings.HasSuffix(prefix, string(sep)) {
		return prefix + tail
	}
	return prefix + string(sep) + tail
}
