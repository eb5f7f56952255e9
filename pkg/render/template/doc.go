// Package template defines the engine contract renderers use to execute
// templates. The gotemplate subpackage provides the pongo2 implementation.
package template
