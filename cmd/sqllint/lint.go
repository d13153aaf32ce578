package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)^\s*(--sql\b.*\n\s*)?(select|insert|update|delete|with|create|alter)\b`)
	markerPattern     = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type finding struct {
	file    string
	line    int
	name    string
	message string
}

func (f finding) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", f.file, f.line, f.message, f.name)
}

type markerUse struct {
	file string
	line int
	name string
}

type linter struct {
	fset     *token.FileSet
	problems []finding
	markers  map[string][]markerUse
}

func newLinter() *linter {
	return &linter{fset: token.NewFileSet(), markers: make(map[string][]markerUse)}
}

// lintPath walks a directory, or lints a single Go file. Test files are
// skipped since fixtures may embed unmarked SQL on purpose.
func (l *linter) lintPath(target string) error {
	return filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		return l.lintFile(path, nil)
	})
}

// lintFile inspects string constants and variables in one file. src may be
// nil to read from disk.
func (l *linter) lintFile(path string, src any) error {
	file, err := parser.ParseFile(l.fset, path, src, parser.ParseComments)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		spec, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range spec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			raw, err := unquote(lit.Value)
			if err != nil || !sqlKeywordPattern.MatchString(raw) {
				continue
			}
			name := "_"
			if i < len(spec.Names) {
				name = spec.Names[i].Name
			}
			pos := l.fset.Position(lit.Pos())
			m := markerPattern.FindStringSubmatch(firstLine(raw))
			if m == nil {
				l.problems = append(l.problems, finding{
					file:    path,
					line:    pos.Line,
					name:    name,
					message: "missing or invalid --sql <uuid> marker",
				})
				continue
			}
			l.markers[m[1]] = append(l.markers[m[1]], markerUse{file: path, line: pos.Line, name: name})
		}
		return true
	})
	return nil
}

// findings returns missing markers plus every reuse of a marker, sorted by
// position.
func (l *linter) findings() []finding {
	out := append([]finding(nil), l.problems...)
	for marker, uses := range l.markers {
		if len(uses) < 2 {
			continue
		}
		for _, u := range uses[1:] {
			out = append(out, finding{
				file:    u.file,
				line:    u.line,
				name:    u.name,
				message: fmt.Sprintf("marker %s already used by %s", marker, uses[0].name),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].file != out[j].file {
			return out[i].file < out[j].file
		}
		return out[i].line < out[j].line
	})
	return out
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) >= 2 && v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}
