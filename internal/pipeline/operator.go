package pipeline

// Kind names the operator family a function is invoked as. The string form
// is the spelling used in dataflow configs and in diagnostics.
type Kind string

const (
	KindMap             Kind = "map"
	KindFilter          Kind = "filter"
	KindFilterMap       Kind = "filter-map"
	KindFlatMap         Kind = "flat-map"
	KindAssignKey       Kind = "assign-key"
	KindAssignTimestamp Kind = "assign-timestamp"
	KindUpdateState     Kind = "update-state"
	KindWindowAggregate Kind = "window-aggregate"
)

func (k Kind) String() string { return string(k) }

// IsTransform reports whether the kind may appear as a step inside a
// transforms block.
func (k Kind) IsTransform() bool {
	switch k {
	case KindMap, KindFilter, KindFilterMap, KindFlatMap:
		return true
	default:
		return false
	}
}

// BoundOperator pairs an invocation with the kind it runs as, for consumers
// that walk every operator of a service, such as interface emission.
type BoundOperator struct {
	Invocation StepInvocation
	Kind       Kind
}

// ParseKind maps a config spelling to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindMap, KindFilter, KindFilterMap, KindFlatMap,
		KindAssignKey, KindAssignTimestamp, KindUpdateState, KindWindowAggregate:
		return Kind(s), true
	default:
		return "", false
	}
}
