// Package harness executes YAML conformance scenarios against a real
// store and compares the resulting audit event trace with golden files.
//
// A scenario is self-contained: it carries its CUE table schema inline,
// a sequence of insert steps with expected digests or expected protocol
// errors, and final assertions over parts and orphaned digests. Fixed
// audit tokens make every run byte-identical, so the event trace can be
// pinned with goldie golden files.
package harness
