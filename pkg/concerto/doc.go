// Package concerto models the declarations of a Concerto-style data model
// (concepts, assets, participants, transactions, events, enumerations) and the
// properties they carry. It is the introspection layer the form visitor walks:
// declarations expose qualified names, ordered properties, optionality and
// array flags, decorators, identifier fields, and type resolution through a
// ModelManager. Model files are read from the JSON metamodel AST
// (`concerto.metamodel@1.0.0`) or the same AST expressed as YAML. A Factory
// builds JSON-shaped sample instances that callers use as default values when
// new array elements or new documents are created.
package concerto
