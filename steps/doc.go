// Package steps provides the built-in step behaviors. Importing it registers
// every behavior in the default builder registry.
package steps

//go:generate go run ../codegen/cmd/stepgen .
