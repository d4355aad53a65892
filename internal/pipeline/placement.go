package pipeline

import "fmt"

// Placement says where in a service an operator edit lands: the top-level
// transforms by default, the window or partition stage when flagged, and the
// window's partition when both are set.
type Placement struct {
	TransformsIndex *int
	Window          bool
	Partition       bool
}

// AddOperator inserts an invocation at the given placement.
func (s *Service) AddOperator(kind Kind, placement Placement, inv StepInvocation) error {
	switch {
	case placement.Window:
		if s.PostTransforms == nil || s.PostTransforms.Window == nil {
			return fmt.Errorf("Cannot add operator. Window was specified but service does not have a window")
		}
		return s.PostTransforms.Window.AddOperator(placement.TransformsIndex, placement.Partition, kind, inv)

	case placement.Partition:
		switch {
		case s.PostTransforms != nil && s.PostTransforms.Partition != nil:
			return s.PostTransforms.Partition.AddOperator(placement.TransformsIndex, kind, inv)
		case s.PostTransforms != nil && s.PostTransforms.Window != nil:
			return fmt.Errorf("Cannot add operator. Service does not have top level partition. To add operator to window partition, please specify window")
		default:
			return fmt.Errorf("Cannot add operator. Partition was specified but service does not have a partition")
		}

	default:
		return s.Transforms.InsertStep(placement.TransformsIndex, kind, inv)
	}
}

// DeleteOperator removes the invocation at the given placement.
func (s *Service) DeleteOperator(placement Placement) error {
	switch {
	case placement.Window:
		if s.PostTransforms == nil || s.PostTransforms.Window == nil {
			return fmt.Errorf("Cannot delete operator. Window was specified but service does not have a window")
		}
		return s.PostTransforms.Window.DeleteOperator(placement.TransformsIndex, placement.Partition)

	case placement.Partition:
		switch {
		case s.PostTransforms != nil && s.PostTransforms.Partition != nil:
			return s.PostTransforms.Partition.DeleteOperator(placement.TransformsIndex)
		case s.PostTransforms != nil && s.PostTransforms.Window != nil:
			return fmt.Errorf("Cannot delete operator. Service does not have top level partition. To delete operator from window partition, please specify window")
		default:
			return fmt.Errorf("Cannot delete operator. Partition was specified but service does not have a partition")
		}

	default:
		if placement.TransformsIndex == nil {
			return fmt.Errorf("Transforms index required to delete operator from transforms")
		}
		return s.Transforms.DeleteStep(*placement.TransformsIndex)
	}
}
