// Package ignore excludes document files from ingestion using ignore files
// written in gitignore syntax (https://git-scm.com/docs/gitignore).
//
// An ignore file applies to its own directory and everything below it.
// Later rules win, so a nested file can re-include with "!pattern" what a
// parent excluded:
//
//	# docs/.searchbridgeignore
//	drafts/
//	*.tmp.jsonl
//	!keep.tmp.jsonl
package ignore

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// FileName is the ignore file looked up in every document directory.
const FileName = ".searchbridgeignore"

// Matcher holds compiled rules. It is safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

type rule struct {
	re       *regexp.Regexp
	base     string
	negate   bool
	dirOnly  bool
	anchored bool
}

// New returns an empty Matcher.
func New() *Matcher { return &Matcher{} }

// Load walks root and adds every ignore file found, skipping hidden
// directories. A root without ignore files yields an empty Matcher.
func Load(root string) (*Matcher, error) {
	m := New()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel != "." && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if rel != "." && m.Match(rel, true) {
			return filepath.SkipDir
		}
		file := filepath.Join(path, FileName)
		if _, err := os.Stat(file); err != nil {
			return nil
		}
		base := ""
		if rel != "." {
			base = filepath.ToSlash(rel)
		}
		return m.AddFile(file, base)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// AddFile adds the rules of an ignore file. base is the slash-separated
// directory they apply to, relative to the document root; empty for the
// root itself.
func (m *Matcher) AddFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.Add(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read ignore file %s: %w", path, err)
	}
	return nil
}

// Add compiles one line of an ignore file. Blank lines and comments are
// skipped.
func (m *Matcher) Add(line, base string) {
	escapedSpace := strings.HasSuffix(line, `\ `)
	p := strings.TrimSpace(line)
	if p == "" || strings.HasPrefix(p, "#") {
		return
	}

	r := rule{base: base}
	switch {
	case strings.HasPrefix(p, `\#`), strings.HasPrefix(p, `\!`):
		p = p[1:]
	case strings.HasPrefix(p, "!"):
		r.negate = true
		p = p[1:]
	}
	if escapedSpace && strings.HasSuffix(p, `\`) {
		p = strings.TrimSuffix(p, `\`) + " "
	}
	if strings.HasSuffix(p, "/") {
		r.dirOnly = true
		p = strings.TrimSuffix(p, "/")
	}
	if strings.HasPrefix(p, "/") {
		r.anchored = true
		p = p[1:]
	}
	// "a/b" is relative to the ignore file's directory, like "/a/b".
	if strings.Contains(p, "/") && !strings.HasPrefix(p, "*") {
		r.anchored = true
	}
	if p == "" {
		return
	}
	r.re = regexp.MustCompile("^" + translate(p) + "$")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// Match reports whether a slash- or OS-separated path relative to the
// document root is ignored.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.matches(path, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r rule) matches(path string, isDir bool) bool {
	if r.base != "" {
		if !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		path = strings.TrimPrefix(path, r.base+"/")
	}
	parts := strings.Split(path, "/")
	parents := parts[:len(parts)-1]

	if r.anchored {
		if r.re.MatchString(path) {
			return !r.dirOnly || isDir
		}
		// Files inside an anchored directory.
		for i := range parents {
			if r.re.MatchString(strings.Join(parts[:i+1], "/")) {
				return true
			}
		}
		return false
	}

	for i, part := range parts {
		if !r.re.MatchString(part) {
			continue
		}
		if i < len(parents) || !r.dirOnly || isDir {
			return true
		}
	}
	return !r.dirOnly && r.re.MatchString(path)
}

// translate turns a glob into a regular expression body.
func translate(p string) string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch c {
		case '*':
			if strings.HasPrefix(p[i:], "**/") {
				b.WriteString("(?:.*/)?")
				i += 2
				continue
			}
			if strings.HasPrefix(p[i:], "**") && (i == 0 || p[i-1] == '/') {
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '[':
			if j := strings.IndexByte(p[i+1:], ']'); j >= 0 {
				b.WriteString(p[i : i+j+2])
				i += j + 1
				continue
			}
			b.WriteString(`\[`)
		case '\\':
			if i+1 < len(p) {
				i++
				b.WriteString(regexp.QuoteMeta(string(p[i])))
				continue
			}
			b.WriteString(`\\`)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
