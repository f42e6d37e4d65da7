// Package schema derives JSON schemas for tool parameter structs via
// reflection. Derivation happens once per type at registration time and is
// cached; dispatch never reflects.
package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[reflect.Type]*Schema)
	cacheMu sync.RWMutex
)

// Schema wraps the reflected JSON schema of a parameter struct together with
// the flattened function-parameters form used in tool declarations.
type Schema struct {
	*jsonschema.Schema

	// Parameters is the flattened object schema: top-level properties and
	// required names with all $refs resolved inline, which is the shape tool
	// listings expect.
	Parameters *jsonschema.Schema
}

// New derives (or returns the cached) schema for the given struct type.
func New(t reflect.Type) (*Schema, error) {
	cacheMu.RLock()
	s, ok := cache[t]
	cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := buildSchema(t)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache[t] = s
	cacheMu.Unlock()
	return s, nil
}

// MustNew is New for static tool tables built at process start.
func MustNew(t reflect.Type) *Schema {
	s, err := New(t)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) String() string {
	bs, _ := json.MarshalIndent(s.Parameters, "", "  ")
	return string(bs)
}

func buildSchema(t reflect.Type) (*Schema, error) {
	full := Reflect(t)

	params, err := toParameters(full)
	if err != nil {
		return nil, err
	}
	return &Schema{
		Schema:     full,
		Parameters: params,
	}, nil
}

// Reflect builds the raw JSON schema for a type. Struct names are suffixed
// with a hash of the package path so same-named structs from different
// packages do not collide on $ref (see invopop/jsonschema#42).
func Reflect(t reflect.Type) *jsonschema.Schema {
	r := new(jsonschema.Reflector)
	r.Namer = func(t reflect.Type) string {
		name := t.Name()
		if t.Kind() == reflect.Struct {
			fullname := t.PkgPath() + "/" + t.Name()
			name = t.Name() + "@" + strconv.FormatUint(xxhash.Sum64String(fullname), 10)
		}
		return name
	}
	return r.ReflectFromType(t)
}

// toParameters lifts the root definition out of $defs and resolves every $ref
// inline, producing a self-contained object schema.
func toParameters(full *jsonschema.Schema) (*jsonschema.Schema, error) {
	rootID := strings.TrimPrefix(full.Ref, "#/$defs/")

	defs := make(map[string]*jsonschema.Schema)
	var root *jsonschema.Schema
	for name, def := range full.Definitions {
		if name == rootID {
			root = def
		} else {
			defs[name] = def
		}
	}
	if root == nil {
		return nil, errors.Newf("schema root definition %q not found", rootID)
	}

	res := &jsonschema.Schema{
		Type:       root.Type,
		Properties: root.Properties,
		Required:   root.Required,
	}
	if err := resolveRefs(res.Properties, defs); err != nil {
		return nil, err
	}
	return res, nil
}

func resolveRefs(props *orderedmap.OrderedMap[string, *jsonschema.Schema], defs map[string]*jsonschema.Schema) error {
	if props == nil {
		return nil
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		child := pair.Value
		if child.Ref != "" {
			name := strings.TrimPrefix(child.Ref, "#/$defs/")
			def, ok := defs[name]
			if !ok {
				return errors.Newf("unresolved schema reference %q", child.Ref)
			}
			pair.Value = def
			child = def
		}
		if child.Properties != nil {
			if err := resolveRefs(child.Properties, defs); err != nil {
				return err
			}
		}
		if child.Items != nil && child.Items.Ref != "" {
			name := strings.TrimPrefix(child.Items.Ref, "#/$defs/")
			def, ok := defs[name]
			if !ok {
				return errors.Newf("unresolved schema reference %q", child.Items.Ref)
			}
			child.Items = def
		}
	}
	return nil
}
