// Package parse converts raw model text into typed Go values. Language
// models wrap JSON in markdown code fences or schema-style envelopes often
// enough that strict unmarshaling alone is not usable; parsing here is
// layered, trying candidate extraction, strict unmarshaling, automatic JSON
// repair and envelope unwrapping before giving up with an error.
//
// The entry point is the generic [ParseStringAs], which handles primitive
// targets (string, bool, integers, floats) and complex targets (structs,
// maps, slices) through one function.
package parse
