// Package formats reads and writes mesh atlas files: the binary atlas
// asset consumed at runtime and the editable .atlas text source.
package formats
