package model

// Extension is one link of a chained extension-struct list (the
// create-info graph's analogue of a pNext chain). Each link's Body is
// already-normalized, arena-owned bytes in the struct's own fixed field
// order (spec §4.3 "Extension chains are encoded as a sequence of
// {struct-type-tag, length, body} records").
type Extension struct {
	Type uint32
	Body []byte
}

// Known extension-struct type tags. An unrecognized tag encountered while
// decoding is a hard error (spec §4.3) — it is never silently dropped, so
// the set is intentionally closed and explicit.
const (
	ExtDepthClipEnable           uint32 = 1
	ExtConservativeRasterization uint32 = 2
	ExtProvokingVertex           uint32 = 3
	ExtPipelineRobustness        uint32 = 4
	ExtSampleLocations           uint32 = 5
)

// KnownExtension reports whether t is a recognized extension-struct tag.
func KnownExtension(t uint32) bool {
	switch t {
	case ExtDepthClipEnable, ExtConservativeRasterization, ExtProvokingVertex,
		ExtPipelineRobustness, ExtSampleLocations:
		return true
	default:
		return false
	}
}
