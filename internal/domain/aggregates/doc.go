// Package aggregates defines the coded error model shared by every write
// boundary: repos report raw failures, services classify them with a code,
// and transports map the code to their own status vocabulary.
package aggregates
