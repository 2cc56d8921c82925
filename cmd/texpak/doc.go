// Command texpak rewrites game chunk containers so that their textures are
// stored uncompressed, either as new patch chunks or by replacing the
// originals, and restores the directory afterwards.
package main
