// Package aggregates holds persistence-side helpers for write boundaries:
// the transaction runner and the mapping of driver failures to coded errors.
package aggregates
