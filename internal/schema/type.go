package schema

// Kind discriminates the closed set of type shapes. Every consumer switches
// exhaustively over these values; adding a shape means visiting each switch.
type Kind int

const (
	KindNull Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindS8
	KindS16
	KindS32
	KindS64
	KindF32
	KindF64
	KindBool
	KindString
	KindBytes
	KindNamed
	KindObject
	KindEnum
	KindList
	KindOption
	KindKeyedState
	KindArrowRow
	KindKeyValue
)

// TypeRef is a by-name reference to another type.
type TypeRef struct {
	Name string `json:"name"`
}

// Type is the tagged union of declarable shapes. Exactly the pointer matching
// the Kind is set; scalar kinds carry no payload.
type Type struct {
	Kind       Kind        `json:"kind"`
	Named      *TypeRef    `json:"named,omitempty"`
	Object     *Object     `json:"object,omitempty"`
	Enum       *Enum       `json:"enum,omitempty"`
	List       *List       `json:"list,omitempty"`
	Option     *Option     `json:"option,omitempty"`
	KeyedState *KeyedState `json:"keyed_state,omitempty"`
	ArrowRow   *ArrowRow   `json:"arrow_row,omitempty"`
	KeyValue   *KeyValue   `json:"key_value,omitempty"`
}

// Object is a record with named, possibly optional fields.
type Object struct {
	Fields []ObjectField `json:"fields"`
}

// ObjectField is one field of an Object.
type ObjectField struct {
	Name     string      `json:"name"`
	Type     TypeRef     `json:"type"`
	Optional bool        `json:"optional,omitempty"`
	Serde    SerdeConfig `json:"serde_config,omitempty"`
}

// SerdeConfig carries per-field rename hints for the emitted interface.
type SerdeConfig struct {
	Serialize   *SerdeField `json:"serialize,omitempty"`
	Deserialize *SerdeField `json:"deserialize,omitempty"`
}

// SerdeField is one direction of a serde rename hint.
type SerdeField struct {
	Rename string `json:"rename,omitempty"`
}

// EnumTagging selects the wire representation of an enum.
type EnumTagging int

const (
	// TaggingDefault is externally tagged, the document default.
	TaggingDefault EnumTagging = iota
	// TaggingUntagged matches values by shape rather than by tag.
	TaggingUntagged
)

// Enum is a closed set of named variants, each optionally carrying a value.
type Enum struct {
	Variants []EnumVariant `json:"variants"`
	Tagging  EnumTagging   `json:"tagging,omitempty"`
}

// EnumVariant is one case of an Enum. A nil Value means a bare variant.
type EnumVariant struct {
	Name  string      `json:"name"`
	Value *TypeRef    `json:"value,omitempty"`
	Serde SerdeConfig `json:"serde_config,omitempty"`
}

// List is a homogeneous sequence.
type List struct {
	Item TypeRef `json:"item"`
}

// Option is an optional wrapper around a referenced type.
type Option struct {
	Value TypeRef `json:"value"`
}

// KeyedStateValueKind discriminates the resolved shape of a keyed-state value.
type KeyedStateValueKind int

const (
	// StateValueUnresolved is a by-name placeholder pending resolution.
	StateValueUnresolved KeyedStateValueKind = iota
	// StateValueU32 is a plain counter value.
	StateValueU32
	// StateValueArrowRow is a columnar row value.
	StateValueArrowRow
)

// KeyedStateValue is the value half of a keyed state: either resolved to one
// of the supported shapes or an Unresolved reference awaiting resolution.
// An Unresolved value blocks emission.
type KeyedStateValue struct {
	Kind       KeyedStateValueKind `json:"kind"`
	Unresolved *TypeRef            `json:"unresolved,omitempty"`
	ArrowRow   *ArrowRow           `json:"arrow_row,omitempty"`
}

// KeyedState is a per-key persisted value.
type KeyedState struct {
	Key   TypeRef         `json:"key"`
	Value KeyedStateValue `json:"value"`
}

// ArrowRow is a columnar record of typed columns.
type ArrowRow struct {
	Columns []ArrowColumn `json:"columns"`
}

// ArrowColumn is one column of an ArrowRow.
type ArrowColumn struct {
	Name string          `json:"name"`
	Type ArrowColumnKind `json:"type"`
}

// ArrowColumnKind is the scalar kind of an arrow column.
type ArrowColumnKind int

const (
	ColumnU8 ArrowColumnKind = iota
	ColumnU16
	ColumnU32
	ColumnU64
	ColumnS8
	ColumnS16
	ColumnS32
	ColumnS64
	ColumnF32
	ColumnF64
	ColumnBool
	ColumnString
	ColumnTimestamp
)

// TypeName returns the declared type name of an arrow column; timestamps are
// stored as signed 64-bit epochs.
func (k ArrowColumnKind) TypeName() string {
	switch k {
	case ColumnU8:
		return "u8"
	case ColumnU16:
		return "u16"
	case ColumnU32:
		return "u32"
	case ColumnU64:
		return "u64"
	case ColumnS8:
		return "s8"
	case ColumnS16:
		return "s16"
	case ColumnS32:
		return "s32"
	case ColumnS64:
		return "s64"
	case ColumnF32:
		return "f32"
	case ColumnF64:
		return "f64"
	case ColumnBool:
		return "bool"
	case ColumnString:
		return "string"
	case ColumnTimestamp:
		return "s64"
	}
	return ""
}

// KeyValue is a generic (key, value) pair of referenced types.
type KeyValue struct {
	Key   TypeRef `json:"key"`
	Value TypeRef `json:"value"`
}

// Origin records whether a registry entry was declared locally or arrived
// through a package import.
type Origin int

const (
	OriginLocal Origin = iota
	OriginImported
)

// String implements fmt.Stringer.
func (o Origin) String() string {
	if o == OriginImported {
		return "imported"
	}
	return "local"
}

// Scalar builds a payload-free scalar type of the given kind.
func Scalar(kind Kind) Type {
	return Type{Kind: kind}
}

// Named builds an alias pointing at another type by name.
func Named(name string) Type {
	return Type{Kind: KindNamed, Named: &TypeRef{Name: name}}
}

// TypeName returns the surface name of the shape: the scalar name for
// scalars, the referenced name for aliases, and the structural keyword for
// structural shapes.
func (t Type) TypeName() string {
	switch t.Kind {
	case KindNull:
		return "null"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindS8:
		return "s8"
	case KindS16:
		return "s16"
	case KindS32:
		return "s32"
	case KindS64:
		return "s64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindNamed:
		return t.Named.Name
	case KindObject:
		return "object"
	case KindEnum:
		return "enum"
	case KindList:
		return "list"
	case KindOption:
		return "option"
	case KindKeyedState:
		return "keyed-state"
	case KindArrowRow:
		return "arrow-row"
	case KindKeyValue:
		return "key-value"
	}
	return ""
}

// IsScalar reports whether the type is one of the payload-free scalar kinds.
func (t Type) IsScalar() bool {
	switch t.Kind {
	case KindNull, KindU8, KindU16, KindU32, KindU64, KindS8, KindS16,
		KindS32, KindS64, KindF32, KindF64, KindBool, KindString, KindBytes:
		return true
	}
	return false
}

// Equal reports deep equality between two types. Used by the import merge to
// distinguish harmless redefinition from a conflict.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindNamed:
		return t.Named.Name == other.Named.Name
	case KindObject:
		return equalObjects(t.Object, other.Object)
	case KindEnum:
		return equalEnums(t.Enum, other.Enum)
	case KindList:
		return t.List.Item == other.List.Item
	case KindOption:
		return t.Option.Value == other.Option.Value
	case KindKeyedState:
		return equalKeyedStates(t.KeyedState, other.KeyedState)
	case KindArrowRow:
		return equalArrowRows(t.ArrowRow, other.ArrowRow)
	case KindKeyValue:
		return *t.KeyValue == *other.KeyValue
	}
	return true
}

func equalObjects(a, b *Object) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		af, bf := a.Fields[i], b.Fields[i]
		if af.Name != bf.Name || af.Type != bf.Type || af.Optional != bf.Optional {
			return false
		}
		if !equalSerde(af.Serde, bf.Serde) {
			return false
		}
	}
	return true
}

func equalEnums(a, b *Enum) bool {
	if a.Tagging != b.Tagging || len(a.Variants) != len(b.Variants) {
		return false
	}
	for i := range a.Variants {
		av, bv := a.Variants[i], b.Variants[i]
		if av.Name != bv.Name || !equalSerde(av.Serde, bv.Serde) {
			return false
		}
		if (av.Value == nil) != (bv.Value == nil) {
			return false
		}
		if av.Value != nil && *av.Value != *bv.Value {
			return false
		}
	}
	return true
}

func equalSerde(a, b SerdeConfig) bool {
	eq := func(x, y *SerdeField) bool {
		if (x == nil) != (y == nil) {
			return false
		}
		return x == nil || *x == *y
	}
	return eq(a.Serialize, b.Serialize) && eq(a.Deserialize, b.Deserialize)
}

func equalKeyedStates(a, b *KeyedState) bool {
	if a.Key != b.Key || a.Value.Kind != b.Value.Kind {
		return false
	}
	switch a.Value.Kind {
	case StateValueUnresolved:
		return *a.Value.Unresolved == *b.Value.Unresolved
	case StateValueArrowRow:
		return equalArrowRows(a.Value.ArrowRow, b.Value.ArrowRow)
	}
	return true
}

func equalArrowRows(a, b *ArrowRow) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}
