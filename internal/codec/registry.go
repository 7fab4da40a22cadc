package codec

import "sync"

// dbcsCcsids lists the CCSIDs that carry a double-byte plane. Every CCSID
// in knownCcsids is single-byte.
var dbcsCcsids = map[int]bool{930: true}

// knownCcsids are the single-byte code pages the registry builds eagerly.
var knownCcsids = []int{37, 277, 285, 500, 870, 871, 1112, 1141}

// Registry is a process-wide, immutable-after-init set of CCSID codecs.
// Construct one with NewRegistry (or use Default) and never mutate it
// afterward; it is safe to share across every session in a pool.
type Registry struct {
	codecs map[int]Codec
}

// NewRegistry builds a registry containing the default EBCDIC code pages
// plus CCSID 930 (Japan DBCS).
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[int]Codec, len(knownCcsids)+1)}
	for _, ccsid := range knownCcsids {
		r.codecs[ccsid] = newSBCSCodec(ccsid)
	}
	for ccsid := range dbcsCcsids {
		r.codecs[ccsid] = newDBCSCodec(ccsid)
	}
	return r
}

// Lookup returns the codec for ccsid, or an *UnknownCcsidError if none is
// registered.
func (r *Registry) Lookup(ccsid int) (Codec, error) {
	c, ok := r.codecs[ccsid]
	if !ok {
		return nil, &UnknownCcsidError{Ccsid: ccsid}
	}
	return c, nil
}

// Ccsids returns every CCSID this registry knows, in ascending order.
func (r *Registry) Ccsids() []int {
	out := make([]int, 0, len(r.codecs))
	for ccsid := range r.codecs {
		out = append(out, ccsid)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry, built on first use.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}
