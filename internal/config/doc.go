// Package config loads the texpak TOML configuration.
//
// Load starts from Default, decodes the file over it, normalizes values
// (path expansion, trimming, lower-casing) and validates the result. A
// missing file is not an error; the defaults apply.
package config
