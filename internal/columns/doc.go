// Package columns flattens stored activity records into CSV rows with a
// fixed column set.
package columns
