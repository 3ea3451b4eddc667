// Package output renders command results for the storefront CLI.
//
// Three formats are supported. JSON and YAML print the value as the backend
// shapes it, using the json field names. Table output prefers a hand-built
// view: values that implement Tabular supply their own headers and rows, and
// anything else is laid out by reflection over its json tags.
package output
