package schema

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ritksm/thriftpy/idl/ast"
	"github.com/ritksm/thriftpy/idl/parser"
	"github.com/ritksm/thriftpy/idl/token"
	"github.com/ritksm/thriftpy/internal/logging"
	"go.uber.org/zap"
)

// LoadOptions configures the Resolver/Loader, per spec.md §6 and §9.
type LoadOptions struct {
	// IncludeDirs is the host-provided search path consulted, in
	// order, when an `include` path does not resolve relative to the
	// including file (spec.md §6).
	IncludeDirs []string

	// AllowLegacyNegativeIds permits explicit non-positive field ids
	// in source, per spec.md §9's Open Question. Field ids the
	// Resolver itself auto-assigns (because the source omitted them)
	// are always accepted, with a warning, regardless of this flag.
	AllowLegacyNegativeIds bool

	// Source overrides where IDL text is read from. Defaults to the
	// filesystem.
	Source SourceProvider
}

// LoadSchema parses the IDL file at path and every module it
// transitively includes, resolves all cross-references, and returns
// the resulting immutable Schema — the Loader's sole entry point per
// spec.md §9 ("the core exposes loadSchema(path) → Schema").
func LoadSchema(path string, opts LoadOptions) (*Schema, error) {
	if opts.Source == nil {
		opts.Source = FileSourceProvider{}
	}
	r := &resolution{
		opts:    opts,
		modules: make(map[string]*loadedModule),
		structs: make(map[string]*StructDef),
		enums:   make(map[string]*EnumDef),
		typedefs: make(map[string]*TypedefDef),
		consts:  make(map[string]*ConstDef),
		services: make(map[string]*ServiceDef),
	}
	return r.run(path)
}

// loadedModule pairs a parsed document with its public schema.Module
// projection and the registry-qualifying name it was loaded under.
type loadedModule struct {
	doc *ast.Document
	mod *Module
}

type resolution struct {
	opts    LoadOptions
	order   []*loadedModule
	modules map[string]*loadedModule // keyed by resolved path

	structs  map[string]*StructDef
	enums    map[string]*EnumDef
	typedefs map[string]*TypedefDef
	consts   map[string]*ConstDef
	services map[string]*ServiceDef
}

func (r *resolution) run(rootPath string) (*Schema, error) {
	visiting := map[string]bool{}
	if _, err := r.load(rootPath, "", visiting); err != nil {
		return nil, err
	}

	// Phase 1: register forward stubs for every declared name so that
	// cyclic/forward references resolve to a shared pointer, per
	// spec.md §9.
	for _, lm := range r.order {
		if err := r.registerStubs(lm); err != nil {
			return nil, err
		}
	}

	// Phase 2: fill in bodies now that every name in the closed module
	// set has a registry entry.
	for _, lm := range r.order {
		if err := r.fillTypedefs(lm); err != nil {
			return nil, err
		}
	}
	for _, lm := range r.order {
		if err := r.fillStructs(lm); err != nil {
			return nil, err
		}
	}
	for _, lm := range r.order {
		if err := r.fillServices(lm); err != nil {
			return nil, err
		}
	}
	for _, lm := range r.order {
		if err := r.fillConsts(lm); err != nil {
			return nil, err
		}
	}

	// Phase 3: whole-schema validations that need every module filled.
	if err := r.checkServiceInheritance(); err != nil {
		return nil, err
	}

	schemaModules := make([]*Module, len(r.order))
	for i, lm := range r.order {
		schemaModules[i] = lm.mod
	}

	return &Schema{
		Modules:      schemaModules,
		structs:      r.structs,
		enums:        r.enums,
		typedefs:     r.typedefs,
		consts:       r.consts,
		services:     r.services,
		bareStructs:  bareIndex(r.structs),
		bareEnums:    bareIndex(r.enums),
		bareServices: bareIndex(r.services),
	}, nil
}

// bareIndex builds a lookup of unqualified name -> value, dropping
// any name that is ambiguous across modules (kept qualified-only).
func bareIndex[V any](qualified map[string]V) map[string]V {
	bare := make(map[string]V, len(qualified))
	seen := make(map[string]bool, len(qualified))
	for k, v := range qualified {
		_, name := splitQualified(k)
		if seen[name] {
			delete(bare, name)
			continue
		}
		seen[name] = true
		bare[name] = v
	}
	return bare
}

func splitQualified(qualified string) (module, name string) {
	idx := strings.LastIndexByte(qualified, '.')
	if idx < 0 {
		return "", qualified
	}
	return qualified[:idx], qualified[idx+1:]
}

// load parses path (and, recursively, everything it includes),
// memoizing by resolved path and rejecting include cycles.
func (r *resolution) load(path string, fromDir string, visiting map[string]bool) (*loadedModule, error) {
	resolved, src, err := r.resolveAndRead(path, fromDir)
	if err != nil {
		return nil, err
	}

	if lm, ok := r.modules[resolved]; ok {
		return lm, nil
	}
	if visiting[resolved] {
		return nil, &ResolveError{Kind: ErrIncludeCycle, Message: fmt.Sprintf("include cycle detected at %q", resolved)}
	}
	visiting[resolved] = true
	defer delete(visiting, resolved)

	doc, err := parser.ParseString(resolved, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", resolved, err)
	}

	name := moduleName(resolved)
	mod := &Module{Name: name, Path: resolved}
	lm := &loadedModule{doc: doc, mod: mod}
	r.modules[resolved] = lm

	dir := filepath.Dir(resolved)
	for _, inc := range doc.Includes {
		if inc.CppOnly {
			continue // cpp_include is parsed and discarded, per spec.md §6
		}
		childLM, err := r.load(inc.Path, dir, visiting)
		if err != nil {
			return nil, err
		}
		mod.Includes = append(mod.Includes, childLM.mod)
	}

	r.order = append(r.order, lm)
	return lm, nil
}

func (r *resolution) resolveAndRead(path string, fromDir string) (resolved string, src string, err error) {
	candidates := []string{path}
	if fromDir != "" && !filepath.IsAbs(path) {
		candidates = []string{filepath.Join(fromDir, path)}
		for _, dir := range r.opts.IncludeDirs {
			candidates = append(candidates, filepath.Join(dir, path))
		}
		candidates = append(candidates, path)
	} else {
		for _, dir := range r.opts.IncludeDirs {
			candidates = append(candidates, filepath.Join(dir, path))
		}
	}

	var lastErr error
	for _, c := range candidates {
		s, readErr := r.opts.Source.Read(c)
		if readErr == nil {
			return c, s, nil
		}
		lastErr = readErr
	}
	return "", "", fmt.Errorf("resolving include %q: %w", path, lastErr)
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// findInclude returns the included module known to m under the given
// namespace prefix (its base filename), per spec.md §4.3 step 2.
func findInclude(m *Module, prefix string) *Module {
	for _, inc := range m.Includes {
		if inc.Name == prefix {
			return inc
		}
	}
	return nil
}

func (r *resolution) registerStubs(lm *loadedModule) error {
	mod, doc := lm.mod, lm.doc

	for _, e := range doc.Enums {
		qn := mod.Name + "." + e.Name
		if _, exists := r.enums[qn]; exists {
			return &ResolveError{Kind: ErrDuplicateName, Module: mod.Name, Pos: e.Pos, Message: "duplicate enum name " + e.Name}
		}
		ed := &EnumDef{Name: qn, byName: map[string]int32{}, byValue: map[int32]string{}}
		for _, v := range e.Values {
			ed.Values = append(ed.Values, EnumValuePair{Symbol: v.Name, Value: int32(v.Value)})
			ed.byName[v.Name] = int32(v.Value)
			if _, exists := ed.byValue[int32(v.Value)]; !exists {
				ed.byValue[int32(v.Value)] = v.Name
			}
		}
		r.enums[qn] = ed
	}

	registerStruct := func(s ast.StructLike, kind StructKind) error {
		qn := mod.Name + "." + s.Name
		if _, exists := r.structs[qn]; exists {
			return &ResolveError{Kind: ErrDuplicateName, Module: mod.Name, Pos: s.Pos, Message: "duplicate type name " + s.Name}
		}
		r.structs[qn] = &StructDef{Name: qn, Kind: kind, byID: map[int16]*FieldDef{}}
		return nil
	}
	for _, s := range doc.Structs {
		if err := registerStruct(s, KindStruct); err != nil {
			return err
		}
	}
	for _, s := range doc.Unions {
		if err := registerStruct(s, KindUnion); err != nil {
			return err
		}
	}
	for _, s := range doc.Exceptions {
		if err := registerStruct(s, KindException); err != nil {
			return err
		}
	}

	for _, td := range doc.Typedefs {
		qn := mod.Name + "." + td.Alias
		if _, exists := r.typedefs[qn]; exists {
			return &ResolveError{Kind: ErrDuplicateName, Module: mod.Name, Pos: td.Pos, Message: "duplicate typedef name " + td.Alias}
		}
		r.typedefs[qn] = &TypedefDef{Name: qn}
	}

	for _, svc := range doc.Services {
		qn := mod.Name + "." + svc.Name
		if _, exists := r.services[qn]; exists {
			return &ResolveError{Kind: ErrDuplicateName, Module: mod.Name, Pos: svc.Pos, Message: "duplicate service name " + svc.Name}
		}
		r.services[qn] = &ServiceDef{Name: qn}
	}

	return nil
}

// resolveType turns an *ast.Type into a *TypeRef, consulting local
// names first and then includedModule.name qualified names, per
// spec.md §4.3 step 2.
func (r *resolution) resolveType(mod *Module, t *ast.Type) (*TypeRef, error) {
	switch {
	case t.Container == "list":
		elem, err := r.resolveType(mod, t.Elem)
		if err != nil {
			return nil, err
		}
		return &TypeRef{Category: List, Elem: elem}, nil
	case t.Container == "set":
		elem, err := r.resolveType(mod, t.Elem)
		if err != nil {
			return nil, err
		}
		return &TypeRef{Category: Set, Elem: elem}, nil
	case t.Key != nil:
		key, err := r.resolveType(mod, t.Key)
		if err != nil {
			return nil, err
		}
		val, err := r.resolveType(mod, t.Value)
		if err != nil {
			return nil, err
		}
		return &TypeRef{Category: Map, Key: key, Value: val}, nil
	case t.Kind != 0 || t.Name == "" && t.Elem == nil && t.Key == nil:
		cat, ok := primitiveCategory(t.Kind)
		if !ok {
			return nil, &ResolveError{Kind: ErrUnresolvedType, Module: mod.Name, Pos: t.Pos, Message: "not a primitive type"}
		}
		return &TypeRef{Category: cat}, nil
	}

	name := t.Name
	var qualified string
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		prefix, rest := name[:idx], name[idx+1:]
		inc := findInclude(mod, prefix)
		if inc == nil {
			return nil, &ResolveError{Kind: ErrUnresolvedType, Module: mod.Name, Pos: t.Pos, Message: fmt.Sprintf("unknown included module %q referenced by %q", prefix, name)}
		}
		qualified = inc.Name + "." + rest
	} else {
		qualified = mod.Name + "." + name
	}

	if sd, ok := r.structs[qualified]; ok {
		return &TypeRef{Category: sd.Kind.typeCategory(), Name: qualified, structDef: sd}, nil
	}
	if ed, ok := r.enums[qualified]; ok {
		return &TypeRef{Category: Enum, Name: qualified, enumDef: ed}, nil
	}
	if td, ok := r.typedefs[qualified]; ok {
		return &TypeRef{Category: Typedef, Name: qualified, typedef: td}, nil
	}
	return nil, &ResolveError{Kind: ErrUnresolvedType, Module: mod.Name, Pos: t.Pos, Message: fmt.Sprintf("unresolved type %q", name)}
}

func (k StructKind) typeCategory() Category {
	switch k {
	case KindUnion:
		return Union
	case KindException:
		return Exception
	default:
		return Struct
	}
}

func primitiveCategory(k token.Kind) (Category, bool) {
	switch k {
	case token.Bool:
		return Bool, true
	case token.Byte:
		return Byte, true
	case token.I16:
		return I16, true
	case token.I32:
		return I32, true
	case token.I64:
		return I64, true
	case token.Double_:
		return Double, true
	case token.StringType:
		return String, true
	case token.Binary:
		return Binary, true
	}
	return 0, false
}

func (r *resolution) fillTypedefs(lm *loadedModule) error {
	for _, td := range lm.doc.Typedefs {
		qn := lm.mod.Name + "." + td.Alias
		ref, err := r.resolveType(lm.mod, td.Type)
		if err != nil {
			return err
		}
		r.typedefs[qn].Type = ref
	}
	return nil
}

// fillStructs resolves field lists for struct/union/exception bodies
// declared directly in lm, assigning auto field ids and validating
// requiredness/uniqueness, per spec.md §3/§9.
func (r *resolution) fillStructs(lm *loadedModule) error {
	fillOne := func(name string, kind StructKind, astFields []ast.Field) error {
		qn := lm.mod.Name + "." + name
		sd := r.structs[qn]
		fields, err := r.resolveFields(lm.mod, qn, astFields)
		if err != nil {
			return err
		}
		sd.Fields = fields
		for _, f := range fields {
			sd.byID[f.ID] = f
		}
		if kind == KindUnion {
			for _, f := range fields {
				if f.Requiredness == Required {
					return &ResolveError{Kind: ErrIllegalRequiredness, Module: lm.mod.Name, Message: fmt.Sprintf("union %s field %s may not be required", name, f.Name)}
				}
			}
		}
		return nil
	}

	for _, s := range lm.doc.Structs {
		if err := fillOne(s.Name, KindStruct, s.Fields); err != nil {
			return err
		}
	}
	for _, s := range lm.doc.Unions {
		if err := fillOne(s.Name, KindUnion, s.Fields); err != nil {
			return err
		}
	}
	for _, s := range lm.doc.Exceptions {
		if err := fillOne(s.Name, KindException, s.Fields); err != nil {
			return err
		}
	}
	return nil
}

// resolveFields turns a parsed field list into FieldDefs, auto
// assigning descending negative ids for any field that omitted one
// (spec.md §4.2/§9) and validating id legality/uniqueness
// (spec.md §3).
func (r *resolution) resolveFields(mod *Module, ownerName string, astFields []ast.Field) ([]*FieldDef, error) {
	fields := make([]*FieldDef, 0, len(astFields))
	seen := map[int16]bool{}
	nextAuto := int32(-1)

	for _, af := range astFields {
		id := af.ID
		if !af.HasID {
			id = nextAuto
			nextAuto--
			logging.Warn("thrift field has no explicit id; auto-assigning",
				zap.String("owner", ownerName), zap.String("field", af.Name), zap.Int32("id", id))
		} else if id <= 0 && !r.opts.AllowLegacyNegativeIds {
			return nil, &ResolveError{Kind: ErrInvalidFieldID, Module: mod.Name, Pos: af.Pos, Message: fmt.Sprintf("%s.%s: explicit field id %d must be positive", ownerName, af.Name, id)}
		}

		if seen[int16(id)] {
			return nil, &ResolveError{Kind: ErrDuplicateFieldID, Module: mod.Name, Pos: af.Pos, Message: fmt.Sprintf("%s: duplicate field id %d", ownerName, id)}
		}
		seen[int16(id)] = true

		typ, err := r.resolveType(mod, af.Type)
		if err != nil {
			return nil, err
		}

		requiredness := schemaRequiredness(af.Requiredness)

		fd := &FieldDef{ID: int16(id), Name: af.Name, Requiredness: requiredness, Type: typ}
		if af.Default != nil {
			cv, err := r.evalLiteral(mod, typ, af.Default)
			if err != nil {
				return nil, err
			}
			fd.Default = &cv
		} else if requiredness == Optional && typ.Underlying().Category == Enum {
			// spec: the default for an optional enum field with no
			// explicit default is the value 0 if present, else unset.
			if ed := typ.EnumDef(); ed != nil {
				if symbol, ok := ed.SymbolOf(0); ok {
					cv := ConstValue{Kind: ConstEnum, EnumType: typ.Underlying().Name, EnumSymbol: symbol, EnumValue: 0}
					fd.Default = &cv
				}
			}
		}

		fields = append(fields, fd)
	}

	return fields, nil
}

func schemaRequiredness(r ast.Requiredness) Requiredness {
	switch r {
	case ast.Required:
		return Required
	case ast.Optional:
		return Optional
	default:
		return DefaultRequiredness
	}
}

func (r *resolution) fillServices(lm *loadedModule) error {
	for _, svc := range lm.doc.Services {
		qn := lm.mod.Name + "." + svc.Name
		sd := r.services[qn]

		if svc.Extends != "" {
			parentQN := svc.Extends
			if !strings.Contains(parentQN, ".") {
				parentQN = lm.mod.Name + "." + parentQN
			} else if idx := strings.IndexByte(parentQN, '.'); idx >= 0 {
				prefix, rest := parentQN[:idx], parentQN[idx+1:]
				if inc := findInclude(lm.mod, prefix); inc != nil {
					parentQN = inc.Name + "." + rest
				}
			}
			parent, ok := r.services[parentQN]
			if !ok {
				return &ResolveError{Kind: ErrServiceNotFound, Module: lm.mod.Name, Pos: svc.Pos, Message: fmt.Sprintf("service %s extends unknown service %s", svc.Name, svc.Extends)}
			}
			sd.Parent = parent
		}

		for _, fn := range svc.Functions {
			md, err := r.buildMethod(lm.mod, qn, fn)
			if err != nil {
				return err
			}
			sd.Methods = append(sd.Methods, md)
		}
	}
	return nil
}

func (r *resolution) buildMethod(mod *Module, serviceQN string, fn ast.Function) (*MethodDef, error) {
	md := &MethodDef{Name: fn.Name, Void: fn.Void, Oneway: fn.Oneway}

	if !fn.Void {
		rt, err := r.resolveType(mod, fn.ReturnType)
		if err != nil {
			return nil, err
		}
		md.ReturnType = rt
	}

	argFields, err := r.resolveFields(mod, serviceQN+"."+fn.Name+"_args", fn.Args)
	if err != nil {
		return nil, err
	}
	md.Args = structFromFields(serviceQN+"."+fn.Name+"_args", KindStruct, argFields)

	throwFields, err := r.resolveFields(mod, serviceQN+"."+fn.Name+"_throws", fn.Throws)
	if err != nil {
		return nil, err
	}
	md.Throws = structFromFields(serviceQN+"."+fn.Name+"_throws", KindStruct, throwFields)

	return md, nil
}

func structFromFields(name string, kind StructKind, fields []*FieldDef) *StructDef {
	return NewStructDef(name, kind, fields)
}

func (r *resolution) fillConsts(lm *loadedModule) error {
	for _, c := range lm.doc.Consts {
		qn := lm.mod.Name + "." + c.Name
		typ, err := r.resolveType(lm.mod, c.Type)
		if err != nil {
			return err
		}
		val, err := r.evalLiteral(lm.mod, typ, c.Value)
		if err != nil {
			return err
		}
		r.consts[qn] = &ConstDef{Name: qn, Type: typ, Value: val}
	}
	return nil
}

// checkServiceInheritance rejects cyclic `extends` chains, per
// spec.md §4.3 step 5.
func (r *resolution) checkServiceInheritance() error {
	for name, svc := range r.services {
		visited := map[*ServiceDef]bool{}
		for s := svc; s != nil; s = s.Parent {
			if visited[s] {
				return &ResolveError{Kind: ErrServiceCycle, Message: fmt.Sprintf("service %s has a cyclic extends chain", name)}
			}
			visited[s] = true
		}
	}
	return nil
}
