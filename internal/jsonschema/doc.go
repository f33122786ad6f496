// Package jsonschema derives JSON Schema documents from Go types for use in
// structured-output response formats.
//
// Property names and requiredness follow the json struct tags, and the
// jsonschema struct tag adds descriptions, enums and required overrides.
// Self-referential types are resolved with $ref and $defs so the generated
// document never cycles.
//
// The entry point is [For], which derives a [Schema] from a type parameter
// without needing a value of that type.
package jsonschema
