// Package services implements the core pipeline stages: segmentation,
// selection, thesaurus indexing, and concept matching. Services depend on
// infrastructure only through the driven ports.
package services
