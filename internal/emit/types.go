package emit

import (
	"fmt"
	"sort"

	"github.com/roach88/sluice/internal/pkgdef"
	"github.com/roach88/sluice/internal/schema"
)

// dfValueUse pulls in the lazily materialized table type backing arrow-row
// states.
var dfValueUse = use{Path: "sdf:df/lazy", Items: []string{"df-value"}}

// typesInterface renders every declared type in the registry into the
// shared "types" interface. Imported types arrive through use statements
// instead of re-emitted definitions.
func typesInterface(reg *schema.Registry, imports []pkgdef.Import) (iface, error) {
	out := iface{Name: "types"}

	for _, imp := range imports {
		items := make([]string, 0, len(imp.Types)+len(imp.States))
		for _, name := range imp.Types {
			items = append(items, WitName(name))
		}
		for _, name := range imp.States {
			items = append(items, WitName(name))
		}
		if len(items) == 0 {
			continue
		}
		out.Uses = append(out.Uses, use{
			Path:  fmt.Sprintf("%s:%s/types", imp.Metadata.Namespace, imp.Metadata.Name),
			Items: items,
		})
	}

	defs := []typeDef{{Name: "bytes", Kind: defAlias, Alias: "list<u8>"}}
	requiresDfValue := false

	for _, name := range reg.Names() {
		entry, _ := reg.Lookup(name)
		if entry.Origin == schema.OriginImported {
			continue
		}
		entryDefs, usesDfValue := typeDefs(name, entry.Type)
		defs = append(defs, entryDefs...)
		requiresDfValue = requiresDfValue || usesDfValue
	}

	deduped, err := dedupDefs(defs)
	if err != nil {
		return iface{}, err
	}
	out.Defs = deduped

	if requiresDfValue {
		out.Uses = append(out.Uses, dfValueUse)
	}
	return out, nil
}

// dedupDefs drops repeated identical definitions and rejects entries that
// share a name with a different shape. Order of first appearance is kept.
func dedupDefs(defs []typeDef) ([]typeDef, error) {
	seen := make(map[string]string)
	out := make([]typeDef, 0, len(defs))
	for _, def := range defs {
		text := def.text()
		if prev, ok := seen[def.Name]; ok {
			if prev != text {
				return nil, fmt.Errorf(
					"Type %s is defined multiple times with different definitions", def.Name)
			}
			continue
		}
		seen[def.Name] = text
		out = append(out, def)
	}
	return out, nil
}

// typeDefs renders one registry entry. Keyed states expand into three
// definitions; the boolean reports whether the entry needs the df-value
// import.
func typeDefs(name string, ty schema.Type) ([]typeDef, bool) {
	defName := MapKeyword(WitName(name))

	switch ty.Kind {
	case schema.KindNull:
		return nil, false
	case schema.KindBytes:
		return []typeDef{{Name: defName, Kind: defAlias, Alias: "list<u8>"}}, false
	case schema.KindNamed:
		return []typeDef{{Name: defName, Kind: defAlias, Alias: witTypeName(ty.Named.Name)}}, false
	case schema.KindList:
		alias := fmt.Sprintf("list<%s>", witTypeName(ty.List.Item.Name))
		return []typeDef{{Name: defName, Kind: defAlias, Alias: alias}}, false
	case schema.KindOption:
		alias := fmt.Sprintf("option<%s>", witTypeName(ty.Option.Value.Name))
		return []typeDef{{Name: defName, Kind: defAlias, Alias: alias}}, false
	case schema.KindKeyValue:
		alias := fmt.Sprintf("tuple<%s, %s>",
			witTypeName(ty.KeyValue.Key.Name), witTypeName(ty.KeyValue.Value.Name))
		return []typeDef{{Name: defName, Kind: defAlias, Alias: alias}}, false
	case schema.KindObject:
		return []typeDef{objectDef(defName, ty.Object)}, false
	case schema.KindEnum:
		return []typeDef{enumDef(defName, ty.Enum)}, false
	case schema.KindArrowRow:
		return []typeDef{arrowRowDef(defName, ty.ArrowRow)}, false
	case schema.KindKeyedState:
		return keyedStateDefs(defName, ty.KeyedState)
	}

	// scalar kinds alias their wit builtin
	return []typeDef{{Name: defName, Kind: defAlias, Alias: witTypeName(ty.TypeName())}}, false
}

func objectDef(name string, obj *schema.Object) typeDef {
	fields := make([]recordField, 0, len(obj.Fields))
	for _, f := range obj.Fields {
		ty := witTypeName(f.Type.Name)
		if f.Optional {
			ty = fmt.Sprintf("option<%s>", ty)
		}
		fields = append(fields, recordField{Name: WitName(f.Name), Type: ty})
	}
	return typeDef{Name: name, Kind: defRecord, Fields: fields}
}

func enumDef(name string, enum *schema.Enum) typeDef {
	cases := make([]variantCase, 0, len(enum.Variants))
	for _, v := range enum.Variants {
		c := variantCase{Name: WitName(v.Name)}
		if v.Value != nil {
			c.Type = witTypeName(v.Value.Name)
		}
		cases = append(cases, c)
	}
	return typeDef{Name: name, Kind: defVariant, Cases: cases}
}

func arrowRowDef(name string, row *schema.ArrowRow) typeDef {
	fields := make([]recordField, 0, len(row.Columns))
	for _, col := range row.Columns {
		fields = append(fields, recordField{
			Name: WitName(col.Name),
			Type: witTypeName(col.Type.TypeName()),
		})
	}
	return typeDef{Name: name, Kind: defRecord, Fields: fields}
}

// keyedStateDefs expands a keyed state into its item value, the state type
// itself, and the (key, value) item tuple.
func keyedStateDefs(name string, state *schema.KeyedState) ([]typeDef, bool) {
	valueName := name + "-item-value"
	itemName := name + "-item"

	var valueDef typeDef
	var stateDef typeDef
	requiresDfValue := false

	switch state.Value.Kind {
	case schema.StateValueU32:
		valueDef = typeDef{Name: valueName, Kind: defAlias, Alias: "u32"}
		stateDef = typeDef{
			Name:  name,
			Kind:  defAlias,
			Alias: fmt.Sprintf("list<%s>", itemName),
		}
	case schema.StateValueArrowRow:
		valueDef = arrowRowDef(valueName, state.Value.ArrowRow)
		stateDef = typeDef{Name: name, Kind: defAlias, Alias: "df-value"}
		requiresDfValue = true
	default:
		valueDef = typeDef{
			Name:  valueName,
			Kind:  defAlias,
			Alias: witTypeName(state.Value.Unresolved.Name),
		}
		stateDef = typeDef{
			Name:  name,
			Kind:  defAlias,
			Alias: witTypeName(state.Value.Unresolved.Name),
		}
	}

	itemDef := typeDef{
		Name:  itemName,
		Kind:  defAlias,
		Alias: fmt.Sprintf("tuple<%s, %s>", witTypeName(state.Key.Name), valueName),
	}

	return []typeDef{valueDef, stateDef, itemDef}, requiresDfValue
}

func sortedUses(uses map[string][]string) []use {
	paths := make([]string, 0, len(uses))
	for path := range uses {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	out := make([]use, 0, len(paths))
	for _, path := range paths {
		items := uses[path]
		sort.Strings(items)
		out = append(out, use{Path: path, Items: items})
	}
	return out
}
