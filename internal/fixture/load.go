package fixture

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/rlgrade/compare"
)

//go:embed schema.cue v1/*.cue
var embedded embed.FS

// document is one CUE source file.
type document struct {
	name string
	src  []byte
}

// rawFixture mirrors #Fixture for decoding.
type rawFixture struct {
	Kind        string            `json:"kind"`
	Description string            `json:"description"`
	Lower       *float64          `json:"lower"`
	Upper       *float64          `json:"upper"`
	Exclusive   bool              `json:"exclusive"`
	Value       *float64          `json:"value"`
	Values      []float64         `json:"values"`
	Tolerance   compare.Tolerance `json:"tolerance"`
}

// Load returns the embedded fixture set for version (e.g. "v1").
func Load(version string) (*Set, error) {
	docs, err := readDocuments(embedded, version)
	if err != nil {
		return nil, err
	}
	return build(version, docs)
}

// LoadDir loads a fixture set from the .cue files in dir. The version is
// taken from the documents themselves and must agree across files.
func LoadDir(dir string) (*Set, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	docs, err := readDocuments(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	return build("", docs)
}

// Versions lists the embedded fixture versions.
func Versions() []string {
	entries, err := embedded.ReadDir(".")
	if err != nil {
		return nil
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)
	return versions
}

func readDocuments(fsys fs.FS, dir string) ([]document, error) {
	matches, err := fs.Glob(fsys, path.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan fixtures: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no fixture documents found for %q", dir)
	}
	sort.Strings(matches)

	docs := make([]document, 0, len(matches))
	for _, m := range matches {
		src, err := fs.ReadFile(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", m, err)
		}
		docs = append(docs, document{name: m, src: src})
	}
	return docs, nil
}

// build compiles every document against the schema and merges the fixtures.
// An empty version accepts whatever the first document declares.
func build(version string, docs []document) (*Set, error) {
	schemaSrc, err := embedded.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError("schema.cue", err)
	}

	set := &Set{Version: version, fixtures: make(map[string]Fixture)}
	defined := make(map[string]string)

	for _, doc := range docs {
		v := ctx.CompileBytes(doc.src, cue.Filename(doc.name))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(doc.name, err)
		}

		v = schema.Unify(v)
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, formatCUEError(doc.name, err)
		}

		docVersion, err := v.LookupPath(cue.ParsePath("version")).String()
		if err != nil {
			return nil, formatCUEError(doc.name, err)
		}
		if set.Version == "" {
			set.Version = docVersion
		}
		if docVersion != set.Version {
			return nil, &Error{
				File:    doc.name,
				Field:   "version",
				Message: fmt.Sprintf("document declares %s, set is %s", docVersion, set.Version),
			}
		}

		iter, err := v.LookupPath(cue.ParsePath("fixtures")).Fields()
		if err != nil {
			return nil, formatCUEError(doc.name, err)
		}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			if prev, dup := defined[name]; dup {
				return nil, &Error{
					File:    doc.name,
					Field:   name,
					Message: fmt.Sprintf("already defined in %s", prev),
					Pos:     iter.Value().Pos(),
				}
			}

			var raw rawFixture
			if err := iter.Value().Decode(&raw); err != nil {
				return nil, formatCUEError(doc.name, err)
			}
			f := raw.fixture(name)
			if err := validateFixture(f); err != nil {
				return nil, &Error{File: doc.name, Field: name, Message: err.Error(), Pos: iter.Value().Pos()}
			}

			set.fixtures[name] = f
			defined[name] = doc.name
		}
	}

	return set, nil
}

func (r rawFixture) fixture(name string) Fixture {
	return Fixture{
		Name:        name,
		Kind:        Kind(r.Kind),
		Description: r.Description,
		Lower:       r.Lower,
		Upper:       r.Upper,
		Exclusive:   r.Exclusive,
		Value:       r.Value,
		Values:      r.Values,
		Tolerance:   r.Tolerance,
	}
}
