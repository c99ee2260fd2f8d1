// Package textutil provides text cleanup helpers for generated titles and
// model output snippets.
package textutil
