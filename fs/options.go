package fs

// Options configures analysis behavior that is not itself part of the
// on-disk format: cache sizing, traversal bounds, cancellation. Passed
// through the facade constructor rather than held as global state.
type Options struct {
	// Number of parsed MFT entries the primary cache retains.
	MFTCacheSize int

	// Number of lightweight filename summaries the path-resolution
	// cache retains; independent of, and usually larger than,
	// MFTCacheSize.
	SummaryCacheSize int

	// Maximum recursion depth when expanding $ATTRIBUTE_LIST
	// indirection across MFT entries.
	MaxAttributeListDepth int

	// Maximum directory depth considered when resolving a full path
	// or walking hard links.
	MaxDirectoryDepth int

	// Maximum number of distinct hard-link paths to resolve for a
	// single entry.
	MaxLinks int
}

// DefaultMFTCacheSize is the bounded-cache capacity from spec §4.6.
const DefaultMFTCacheSize = 128

// DefaultMaxAttributeListDepth bounds $ATTRIBUTE_LIST recursion (spec §9:
// "the source has no explicit depth bound. Choose a finite bound").
const DefaultMaxAttributeListDepth = 16

// GetDefaultOptions returns the options a facade uses unless overridden.
func GetDefaultOptions() Options {
	return Options{
		MFTCacheSize:          DefaultMFTCacheSize,
		SummaryCacheSize:      10000,
		MaxAttributeListDepth: DefaultMaxAttributeListDepth,
		MaxDirectoryDepth:     20,
		MaxLinks:              20,
	}
}
