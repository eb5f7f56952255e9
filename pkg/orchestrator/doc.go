// Package orchestrator wires the model manager → visitor → renderer pipeline:
// it resolves the root type, binds the traversal callbacks to the document
// under edit, applies tree transformers and theme selection, and hands the
// element tree to a registered renderer.
package orchestrator
