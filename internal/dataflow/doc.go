// Package dataflow is the top of the config model: a dataflow definition
// ties a header, declared types, topics, schedules, and services together
// and validates the whole graph in one pass, collecting every problem into
// a single rendered failure.
package dataflow
