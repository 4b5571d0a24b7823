// Package training holds the persisted entities of a training evaluation
// activity: the activity row, its section forest, items and their configs,
// per-user responses, versioned evaluations and the files uploaded into
// fileupload areas.
package training
