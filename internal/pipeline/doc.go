// Package pipeline models the operator layer of a dataflow: function
// invocations, the transform chains they form, window and partition stages,
// and whole services. Validation collects every problem it can find instead
// of stopping at the first one; the message text is part of the user-visible
// contract and is compared verbatim by tests.
package pipeline
