// Package chunk models container file names such as
// re_chunk_000.pak.sub_000.pak.patch_001.pak.
//
// A [Name] is an immutable, ordered sequence of typed components. Parsing
// assigns each dot-separated token pair a [Kind]; a patch token that follows
// a sub token becomes [KindSubPatch]. Names are totally ordered by [Compare].
package chunk
