package schema

// Schema is the closed, immutable graph produced by the Resolver, per
// spec.md §3's Lifecycle note: "Schema is built once from parsed
// sources and thereafter read-only." All lookups are by fully
// qualified name ("<module>.<Name>"); Struct, Enum, and Service also
// accept a bare name when it is unambiguous across the loaded modules,
// while Typedef and Const take qualified names only.
type Schema struct {
	Modules []*Module

	structs   map[string]*StructDef
	enums     map[string]*EnumDef
	typedefs  map[string]*TypedefDef
	consts    map[string]*ConstDef
	services  map[string]*ServiceDef

	bareStructs  map[string]*StructDef
	bareEnums    map[string]*EnumDef
	bareServices map[string]*ServiceDef
}

// Struct looks up a struct/union/exception by qualified or bare name.
func (s *Schema) Struct(name string) (*StructDef, bool) {
	if d, ok := s.structs[name]; ok {
		return d, true
	}
	d, ok := s.bareStructs[name]
	return d, ok
}

// Enum looks up an enum by qualified or bare name.
func (s *Schema) Enum(name string) (*EnumDef, bool) {
	if d, ok := s.enums[name]; ok {
		return d, true
	}
	d, ok := s.bareEnums[name]
	return d, ok
}

// Typedef looks up a typedef by qualified name.
func (s *Schema) Typedef(name string) (*TypedefDef, bool) {
	d, ok := s.typedefs[name]
	return d, ok
}

// Const looks up a constant by qualified name.
func (s *Schema) Const(name string) (*ConstDef, bool) {
	d, ok := s.consts[name]
	return d, ok
}

// Service looks up a service by qualified or bare name.
func (s *Schema) Service(name string) (*ServiceDef, bool) {
	if d, ok := s.services[name]; ok {
		return d, true
	}
	d, ok := s.bareServices[name]
	return d, ok
}

// Structs returns every struct/union/exception in the schema, in no
// particular order. Useful for host adapters projecting the whole
// type registry (spec.md §9).
func (s *Schema) Structs() []*StructDef {
	out := make([]*StructDef, 0, len(s.structs))
	for _, d := range s.structs {
		out = append(out, d)
	}
	return out
}

// Enums returns every enum in the schema.
func (s *Schema) Enums() []*EnumDef {
	out := make([]*EnumDef, 0, len(s.enums))
	for _, d := range s.enums {
		out = append(out, d)
	}
	return out
}

// Services returns every service in the schema.
func (s *Schema) Services() []*ServiceDef {
	out := make([]*ServiceDef, 0, len(s.services))
	for _, d := range s.services {
		out = append(out, d)
	}
	return out
}
