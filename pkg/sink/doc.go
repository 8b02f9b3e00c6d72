// Package sink writes report output: the rows CSV, the processing errors
// CSV, the CI environment export and an optional SQLite run history.
package sink
