package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

const schemaFile = "schema.cue"

// Load reads the manifest at path. The format is chosen by extension:
// .yaml and .yml are YAML, .cue is CUE.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m *Manifest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		m, err = ParseYAML(data, path)
	case ".cue":
		m, err = ParseCUE(data, path)
	default:
		return nil, fmt.Errorf("unsupported manifest extension %q: want .yaml, .yml or .cue", ext)
	}
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest directory: %w", err)
	}
	m.Dir = dir
	return m, nil
}

// ParseYAML decodes a YAML manifest. Unknown fields are rejected both by
// the schema and by the strict decoder.
func ParseYAML(data []byte, filename string) (*Manifest, error) {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, formatCUEError(err)
	}
	cctx := cuecontext.New()
	if _, err := checkSchema(cctx, cctx.BuildFile(file)); err != nil {
		return nil, err
	}

	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&m)
}

// ParseCUE evaluates a CUE manifest and decodes its concrete value.
func ParseCUE(data []byte, filename string) (*Manifest, error) {
	cctx := cuecontext.New()
	v := cctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	unified, err := checkSchema(cctx, v)
	if err != nil {
		return nil, err
	}

	raw, err := unified.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var m Manifest
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return finish(&m)
}

// checkSchema unifies v with #Manifest and requires a concrete result.
func checkSchema(cctx *cue.Context, v cue.Value) (cue.Value, error) {
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	schema := cctx.CompileString(schemaSource, cue.Filename(schemaFile))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile manifest schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		verr := formatCUEError(err)
		if ve, ok := verr.(*ValidationError); ok {
			locate(ve, v, def)
		}
		return cue.Value{}, verr
	}
	return unified, nil
}

// locate points a schema error at the offending manifest value. Errors
// from a failed disjunction carry no position of their own.
func locate(verr *ValidationError, data, def cue.Value) {
	if verr.Field == "manifest" {
		return
	}
	sels := strings.Split(verr.Field, ".")
	v := data.LookupPath(selectorPath(sels, false))
	if !v.Exists() {
		return
	}
	if !verr.Pos.IsValid() || verr.Pos.Filename() == schemaFile {
		verr.Pos = v.Pos()
	}
	if !v.IsConcrete() {
		return
	}

	s := def.LookupPath(selectorPath(sels, false))
	if !s.Exists() {
		s = def.LookupPath(selectorPath(sels, true))
	}
	if op, args := s.Expr(); op == cue.OrOp {
		allowed := make([]string, len(args))
		for i, a := range args {
			allowed[i] = fmt.Sprint(a)
		}
		verr.Message = fmt.Sprintf("%v is not one of %s", v, strings.Join(allowed, ", "))
	} else if strings.Contains(verr.Message, "empty disjunction") {
		verr.Message = fmt.Sprintf("%v is not an allowed value", v)
	}
}

// selectorPath turns a dotted error path into a cue.Path. With anyIndex,
// list indices select the element constraint instead.
func selectorPath(sels []string, anyIndex bool) cue.Path {
	out := make([]cue.Selector, len(sels))
	for i, s := range sels {
		n, err := strconv.Atoi(s)
		switch {
		case err != nil:
			out[i] = cue.Str(s)
		case anyIndex:
			out[i] = cue.AnyIndex
		default:
			out[i] = cue.Index(n)
		}
	}
	return cue.MakePath(out...)
}

func finish(m *Manifest) (*Manifest, error) {
	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// formatCUEError keeps the first error with its source position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	format, args := first.Msg()
	path := first.Path()
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	verr := &ValidationError{
		Field:   strings.Join(path, "."),
		Message: fmt.Sprintf(format, args...),
	}
	// Prefer a position in the manifest over one in the schema.
	for _, pos := range errors.Positions(first) {
		if !verr.Pos.IsValid() || verr.Pos.Filename() == schemaFile {
			verr.Pos = pos
		}
	}
	if verr.Field == "" {
		verr.Field = "manifest"
	}
	return verr
}

// DataPath returns the data file of s, resolved against the manifest
// directory when relative.
func (m *Manifest) DataPath(s Scenario) string {
	if filepath.IsAbs(s.Data) || m.Dir == "" {
		return s.Data
	}
	return filepath.Join(m.Dir, s.Data)
}
