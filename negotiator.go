package relay

// Pair is an ordered (source, destination) capability combination.
// Zero-copy support is directional: allowing {TCP, Unix} says nothing
// about {Unix, TCP}.
type Pair struct {
	Src Capability
	Dst Capability
}

func (p Pair) String() string {
	return p.Src.String() + "->" + p.Dst.String()
}

// Platform describes what the host kernel can do. It is supplied by the
// caller (or by HostPlatform) and never probed by the Negotiator itself.
type Platform struct {
	// Splice reports whether the kernel implements splice(2) at all.
	Splice bool

	// Pairs lists the ordered endpoint combinations the zero-copy path may
	// be attempted on. Pairs involving Generic are ignored.
	Pairs []Pair
}

// NoZeroCopy is a Platform that forces the buffered path everywhere.
func NoZeroCopy() Platform {
	return Platform{}
}

// Without returns a copy of p with the given ordered pairs removed.
func (p Platform) Without(pairs ...Pair) Platform {
	out := Platform{Splice: p.Splice}
	for _, have := range p.Pairs {
		drop := false
		for _, rm := range pairs {
			if have == rm {
				drop = true
				break
			}
		}
		if !drop {
			out.Pairs = append(out.Pairs, have)
		}
	}
	return out
}

// Negotiator decides, per ordered endpoint pair, whether the zero-copy
// path may be attempted. It is immutable after construction and safe for
// concurrent use.
type Negotiator struct {
	splice bool
	table  [numCapabilities][numCapabilities]bool // [src][dst]
}

// NewNegotiator builds a Negotiator from a platform description.
func NewNegotiator(p Platform) *Negotiator {
	n := &Negotiator{splice: p.Splice}
	for _, pair := range p.Pairs {
		if pair.Src.Kernel() && pair.Dst.Kernel() {
			n.table[pair.Src][pair.Dst] = true
		}
	}
	return n
}

// CanZeroCopy reports whether bytes flowing from src into dst may use the
// kernel zero-copy path. It inspects only the capability tags of the two
// endpoints: O(1), no I/O, no side effects. False is always safe.
func (n *Negotiator) CanZeroCopy(dst, src Endpoint) bool {
	if n == nil || !n.splice {
		return false
	}
	return n.Supports(Pair{Src: CapabilityOf(src), Dst: CapabilityOf(dst)})
}

// Supports reports whether the ordered pair is enabled.
func (n *Negotiator) Supports(p Pair) bool {
	if n == nil || !n.splice || !p.Src.Kernel() || !p.Dst.Kernel() {
		return false
	}
	return n.table[p.Src][p.Dst]
}
