// Package quality gates a ticker's fact table on row count, the quarter
// axis and column coverage before it is written.
package quality
