package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sluice/internal/dataflow"
	"github.com/roach88/sluice/internal/pipeline"
	"github.com/roach88/sluice/internal/pkgdef"
	"github.com/roach88/sluice/internal/schema"
)

// scalarKinds maps every accepted scalar spelling to its kind. The i-prefix
// and long float spellings are aliases from older documents.
var scalarKinds = map[string]schema.Kind{
	"u8":      schema.KindU8,
	"u16":     schema.KindU16,
	"u32":     schema.KindU32,
	"u64":     schema.KindU64,
	"s8":      schema.KindS8,
	"i8":      schema.KindS8,
	"s16":     schema.KindS16,
	"i16":     schema.KindS16,
	"s32":     schema.KindS32,
	"i32":     schema.KindS32,
	"s64":     schema.KindS64,
	"i64":     schema.KindS64,
	"f32":     schema.KindF32,
	"float32": schema.KindF32,
	"f64":     schema.KindF64,
	"float64": schema.KindF64,
	"bool":    schema.KindBool,
	"string":  schema.KindString,
	"String":  schema.KindString,
	"bytes":   schema.KindBytes,
}

// refName canonicalizes a reference spelling: scalar aliases collapse to
// their canonical name, everything else is kept as written.
func refName(name string) string {
	if kind, ok := scalarKinds[name]; ok {
		return schema.Scalar(kind).TypeName()
	}
	return name
}

var columnKinds = map[string]schema.ArrowColumnKind{
	"u8":        schema.ColumnU8,
	"u16":       schema.ColumnU16,
	"u32":       schema.ColumnU32,
	"u64":       schema.ColumnU64,
	"s8":        schema.ColumnS8,
	"i8":        schema.ColumnS8,
	"s16":       schema.ColumnS16,
	"i16":       schema.ColumnS16,
	"s32":       schema.ColumnS32,
	"i32":       schema.ColumnS32,
	"s64":       schema.ColumnS64,
	"i64":       schema.ColumnS64,
	"f32":       schema.ColumnF32,
	"float32":   schema.ColumnF32,
	"f64":       schema.ColumnF64,
	"float64":   schema.ColumnF64,
	"bool":      schema.ColumnBool,
	"string":    schema.ColumnString,
	"timestamp": schema.ColumnTimestamp,
}

func convertTypes(types map[string]typeWire) ([]schema.Entry, error) {
	names := sortedKeys(types)
	entries := make([]schema.Entry, 0, len(names))
	for _, name := range names {
		ty, err := convertType(name, types[name])
		if err != nil {
			return nil, err
		}
		entries = append(entries, schema.Entry{Name: name, Type: ty})
	}
	return entries, nil
}

func convertType(name string, w typeWire) (schema.Type, error) {
	if kind, ok := scalarKinds[w.Type]; ok {
		return schema.Scalar(kind), nil
	}

	switch w.Type {
	case "":
		return schema.Type{Kind: schema.KindNull}, nil

	case "object":
		var props map[string]objectFieldWire
		if err := w.Properties.Decode(&props); err != nil {
			return schema.Type{}, typeSyntaxError(name)
		}
		obj := &schema.Object{}
		for _, field := range sortedKeys(props) {
			obj.Fields = append(obj.Fields, schema.ObjectField{
				Name:     field,
				Type:     schema.TypeRef{Name: refName(props[field].Type)},
				Optional: props[field].Optional,
			})
		}
		return schema.Type{Kind: schema.KindObject, Object: obj}, nil

	case "enum":
		enum := &schema.Enum{}
		if w.Tagging == "untagged" {
			enum.Tagging = schema.TaggingUntagged
		}
		for _, variant := range sortedKeys(w.OneOf) {
			v := schema.EnumVariant{Name: variant}
			if ty := w.OneOf[variant].Type; ty != "" {
				v.Value = &schema.TypeRef{Name: refName(ty)}
			}
			enum.Variants = append(enum.Variants, v)
		}
		return schema.Type{Kind: schema.KindEnum, Enum: enum}, nil

	case "list":
		item := w.Items
		if item == nil {
			item = w.Item
		}
		if item == nil {
			return schema.Type{}, typeSyntaxError(name)
		}
		return schema.Type{
			Kind: schema.KindList,
			List: &schema.List{Item: schema.TypeRef{Name: refName(item.Type)}},
		}, nil

	case "option":
		if w.Value == nil {
			return schema.Type{}, typeSyntaxError(name)
		}
		return schema.Type{
			Kind:   schema.KindOption,
			Option: &schema.Option{Value: schema.TypeRef{Name: refName(w.Value.Type)}},
		}, nil

	case "key-value":
		var props struct {
			Key   typeRefWire `yaml:"key"`
			Value typeRefWire `yaml:"value"`
		}
		if err := w.Properties.Decode(&props); err != nil {
			return schema.Type{}, typeSyntaxError(name)
		}
		return schema.Type{
			Kind: schema.KindKeyValue,
			KeyValue: &schema.KeyValue{
				Key:   schema.TypeRef{Name: refName(props.Key.Type)},
				Value: schema.TypeRef{Name: refName(props.Value.Type)},
			},
		}, nil

	case "keyed-state":
		state, err := convertKeyedState(name, w)
		if err != nil {
			return schema.Type{}, err
		}
		return schema.Type{Kind: schema.KindKeyedState, KeyedState: state}, nil

	case "arrow-row":
		row, err := convertArrowRow(name, w)
		if err != nil {
			return schema.Type{}, err
		}
		return schema.Type{Kind: schema.KindArrowRow, ArrowRow: row}, nil
	}

	return schema.Named(w.Type), nil
}

func convertKeyedState(name string, w typeWire) (*schema.KeyedState, error) {
	var props kvPropsWire
	if err := w.Properties.Decode(&props); err != nil {
		return nil, typeSyntaxError(name)
	}

	state := &schema.KeyedState{Key: schema.TypeRef{Name: refName(props.Key.Type)}}

	switch refName(props.Value.Type) {
	case "u32":
		state.Value = schema.KeyedStateValue{Kind: schema.StateValueU32}
	case "arrow-row":
		row, err := convertArrowRow(name, props.Value)
		if err != nil {
			return nil, err
		}
		state.Value = schema.KeyedStateValue{
			Kind:     schema.StateValueArrowRow,
			ArrowRow: row,
		}
	default:
		state.Value = schema.KeyedStateValue{
			Kind:       schema.StateValueUnresolved,
			Unresolved: &schema.TypeRef{Name: refName(props.Value.Type)},
		}
	}
	return state, nil
}

func convertArrowRow(name string, w typeWire) (*schema.ArrowRow, error) {
	var props map[string]typeRefWire
	if err := w.Properties.Decode(&props); err != nil {
		return nil, typeSyntaxError(name)
	}
	row := &schema.ArrowRow{}
	for _, column := range sortedKeys(props) {
		kind, ok := columnKinds[props[column].Type]
		if !ok {
			return nil, typeSyntaxError(name)
		}
		row.Columns = append(row.Columns, schema.ArrowColumn{Name: column, Type: kind})
	}
	return row, nil
}

func typeSyntaxError(name string) error {
	return fmt.Errorf("Invalid syntax for type with name: %s", name)
}

func convertTopics(topics map[string]topicWire, defaults *defaultsWire) []dataflow.Topic {
	out := make([]dataflow.Topic, 0, len(topics))
	for _, id := range sortedKeys(topics) {
		w := topics[id]
		topic := dataflow.Topic{
			Name: w.Name,
			Schema: dataflow.TopicSchema{
				Value: convertSerde(w.Schema.Value, defaults),
			},
		}
		if topic.Name == "" {
			topic.Name = id
		}
		if w.Schema.Key != nil {
			key := convertSerde(*w.Schema.Key, defaults)
			topic.Schema.Key = &key
		}
		out = append(out, topic)
	}
	return out
}

func convertSerde(w serdeWire, defaults *defaultsWire) dataflow.SchemaSerDe {
	out := dataflow.SchemaSerDe{Type: schema.TypeRef{Name: refName(w.Type)}}
	converter := w.Converter
	if converter == nil && defaults != nil {
		converter = defaults.Converter
	}
	if converter != nil {
		c := dataflow.Converter(*converter)
		out.Converter = &c
	}
	return out
}

func convertImports(imports []importWire) ([]pkgdef.Import, error) {
	out := make([]pkgdef.Import, 0, len(imports))
	for _, w := range imports {
		meta, err := pkgdef.ParsePackageRef(w.Pkg)
		if err != nil {
			return nil, err
		}
		imp := pkgdef.Import{Metadata: meta, Path: w.Path}
		for _, t := range w.Types {
			imp.Types = append(imp.Types, t.Name)
		}
		for _, s := range w.States {
			imp.States = append(imp.States, s.Name)
		}
		for _, f := range w.Functions {
			fi := pkgdef.FunctionImport{Name: f.Name}
			if f.Alias != "" {
				alias := f.Alias
				fi.Alias = &alias
			}
			imp.Functions = append(imp.Functions, fi)
		}
		out = append(out, imp)
	}
	return out, nil
}

func convertInvocation(w invocationWire) pipeline.StepInvocation {
	inv := pipeline.StepInvocation{Uses: w.Uses}
	for _, s := range w.States {
		inv.States = append(inv.States, pipeline.StepState{Name: s.Name})
	}

	// Inline code wins over a declared signature; the declared fields are
	// replaced by extraction before validation.
	if w.Run != "" {
		lang := w.Lang
		if lang == "" {
			lang = "go"
		}
		inv.Code = pipeline.CodeInfo{Lang: lang, Code: w.Run}
		return inv
	}

	for _, p := range w.Inputs {
		param := pipeline.Parameter{
			Name:     p.Name,
			Type:     schema.TypeRef{Name: refName(p.Type)},
			Optional: p.Optional,
		}
		if p.Kind == "key" {
			param.Kind = pipeline.ParamKey
		}
		inv.Inputs = append(inv.Inputs, param)
	}
	if w.Output != nil {
		inv.Output = &pipeline.StepOutput{
			Type:     schema.TypeRef{Name: refName(w.Output.Type)},
			Optional: w.Output.Optional,
		}
	}
	return inv
}

// parseFunctionKind maps a published function's operator spelling to a
// Kind. Window aggregates are spelled "aggregate" in package documents.
func parseFunctionKind(s string) (pipeline.Kind, bool) {
	if s == "aggregate" {
		return pipeline.KindWindowAggregate, true
	}
	return pipeline.ParseKind(s)
}

func convertSteps(ops []operatorWire) ([]pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(ops))
	for _, op := range ops {
		kind, ok := pipeline.ParseKind(op.Operator)
		if !ok {
			return nil, fmt.Errorf("unknown operator %s", op.Operator)
		}
		step, err := pipeline.NewStep(kind, convertInvocation(op.Invocation))
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func convertService(name string, w serviceWire) (pipeline.Service, error) {
	svc := pipeline.Service{Name: name}

	for _, src := range w.Sources {
		ref, err := convertIoRef(src)
		if err != nil {
			return pipeline.Service{}, err
		}
		svc.Sources = append(svc.Sources, ref)
	}

	if w.Sinks == nil {
		svc.Sinks = []pipeline.IoRef{{Type: pipeline.IoNoTarget}}
	}
	for _, sink := range w.Sinks {
		ref, err := convertIoRef(sink)
		if err != nil {
			return pipeline.Service{}, err
		}
		svc.Sinks = append(svc.Sinks, ref)
	}

	steps, err := convertSteps(w.Transforms)
	if err != nil {
		return pipeline.Service{}, err
	}
	svc.Transforms = pipeline.Transforms{Steps: steps}

	post, err := convertPostTransforms(w.Window, w.Partition)
	if err != nil {
		return pipeline.Service{}, err
	}
	svc.PostTransforms = post

	for _, stateName := range sortedKeys(w.States) {
		var node yaml.Node = w.States[stateName]
		var wire stateWire
		if err := wire.decode(&node); err != nil {
			return pipeline.Service{}, err
		}
		state, err := convertState(name, stateName, wire)
		if err != nil {
			return pipeline.Service{}, err
		}
		svc.States = append(svc.States, state)
	}

	return svc, nil
}

func convertIoRef(w ioRefWire) (pipeline.IoRef, error) {
	ref := pipeline.IoRef{ID: w.ID}
	switch w.Type {
	case "topic":
		ref.Type = pipeline.IoTopic
	case "schedule":
		ref.Type = pipeline.IoSchedule
	case "no-target":
		ref.Type = pipeline.IoNoTarget
	default:
		return pipeline.IoRef{}, fmt.Errorf("unknown source/sink type %s", w.Type)
	}
	steps, err := convertSteps(w.Transforms)
	if err != nil {
		return pipeline.IoRef{}, err
	}
	ref.Steps = steps
	return ref, nil
}

func convertState(service, name string, w stateWire) (pipeline.State, error) {
	switch {
	case w.From != "":
		parts := strings.SplitN(w.From, ".", 2)
		ref := pipeline.StateRef{Service: parts[0]}
		if len(parts) == 2 {
			ref.Name = parts[1]
		}
		return pipeline.State{Reference: &ref}, nil

	case w.System != "":
		return pipeline.State{System: &pipeline.SystemState{Name: name, System: w.System}}, nil

	case w.Typed != nil:
		ty, err := convertType(name, *w.Typed)
		if err != nil {
			return pipeline.State{}, err
		}
		if ty.Kind != schema.KindKeyedState {
			return pipeline.State{}, fmt.Errorf(
				"Invalid state definition for service %s: %s", service, name)
		}
		return pipeline.State{
			Typed: &pipeline.TypedState{Name: name, Type: *ty.KeyedState},
		}, nil
	}

	return pipeline.State{}, fmt.Errorf(
		"Invalid state definition for service %s: %s", service, name)
}

func convertPostTransforms(window *windowWire, partition *partitionWire) (*pipeline.PostTransforms, error) {
	switch {
	case window != nil:
		w, err := convertWindow(window)
		if err != nil {
			return nil, err
		}
		return &pipeline.PostTransforms{Window: w}, nil
	case partition != nil:
		p, err := convertPartition(partition)
		if err != nil {
			return nil, err
		}
		return &pipeline.PostTransforms{Partition: p}, nil
	}
	return nil, nil
}

func convertWindow(w *windowWire) (*pipeline.Window, error) {
	props, err := convertWindowProperties(w)
	if err != nil {
		return nil, err
	}

	out := &pipeline.Window{
		Properties:      props,
		AssignTimestamp: convertInvocation(w.AssignTimestamp),
	}

	steps, err := convertSteps(w.Transforms)
	if err != nil {
		return nil, err
	}
	out.Transforms = pipeline.Transforms{Steps: steps}

	if w.Partition != nil {
		p, err := convertPartition(w.Partition)
		if err != nil {
			return nil, err
		}
		out.Partition = p
	}
	if w.Flush != nil {
		flush := convertInvocation(*w.Flush)
		out.Flush = &flush
	}
	return out, nil
}

func convertWindowProperties(w *windowWire) (pipeline.WindowProperties, error) {
	var props pipeline.WindowProperties
	var span *windowSpanWire

	switch {
	case w.Tumbling != nil && w.Sliding != nil:
		return props, fmt.Errorf("window cannot be both tumbling and sliding")
	case w.Tumbling != nil:
		props.Kind = pipeline.WindowTumbling
		span = w.Tumbling
	case w.Sliding != nil:
		props.Kind = pipeline.WindowSliding
		span = w.Sliding
	default:
		return props, fmt.Errorf("window must be tumbling or sliding")
	}

	var err error
	if props.Duration, err = parseSpan(span.Duration); err != nil {
		return props, fmt.Errorf("Failed to parse window duration: %v", err)
	}
	if span.Offset != "" {
		if props.Offset, err = parseSpan(span.Offset); err != nil {
			return props, fmt.Errorf("Failed to parse window offset: %v", err)
		}
	}
	if props.Kind == pipeline.WindowSliding {
		if span.Slide == "" {
			return props, fmt.Errorf("sliding window requires a slide interval")
		}
		if props.Slide, err = parseSpan(span.Slide); err != nil {
			return props, fmt.Errorf("Failed to parse window slide: %v", err)
		}
	}
	if w.Watermark.Idleness != "" {
		if props.Idleness, err = parseSpan(w.Watermark.Idleness); err != nil {
			return props, fmt.Errorf("Failed to parse idleness config: %v", err)
		}
	}
	if w.Watermark.GracePeriod != "" {
		if props.GracePeriod, err = parseSpan(w.Watermark.GracePeriod); err != nil {
			return props, fmt.Errorf("Failed to parse watermark grace period: %v", err)
		}
	}
	return props, nil
}

func parseSpan(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func convertPartition(w *partitionWire) (*pipeline.Partition, error) {
	out := &pipeline.Partition{AssignKey: convertInvocation(w.AssignKey)}

	steps, err := convertSteps(w.Transforms)
	if err != nil {
		return nil, err
	}
	out.Transforms = pipeline.Transforms{Steps: steps}

	if w.UpdateState != nil {
		update := convertInvocation(*w.UpdateState)
		out.UpdateState = &update
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
