// Package common provides shared types used across the ff tool.
// It includes the scheme and host identity types and the structured
// output rendered by the command line front end.
package common

// KV is a labelled value shown in command output.
type KV struct {
	Key   string
	Value string
}

// Table is a simple header + rows grid.
type Table struct {
	Header []string
	Rows   [][]string
}

// Output is the structured result of a command, rendered by the display.
type Output struct {
	// Message is printed first, on its own line.
	Message string
	// KV pairs are printed as aligned "key: value" lines.
	KV []KV
	// Table is printed last when present.
	Table *Table
}

// FetchResult records where one URI ended up.
type FetchResult struct {
	// URI is the input as given by the caller.
	URI string
	// Path is the absolute path of the retrieved file.
	Path string
	// Size is the size of the retrieved file in bytes.
	Size int64
}
