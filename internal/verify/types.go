package verify

// Verdict is the outcome of comparing one pair of files.
type Verdict int

const (
	Same Verdict = iota
	Different
)

func (v Verdict) String() string {
	if v == Different {
		return "different"
	}
	return "same"
}

// Options configures a Comparator.
type Options struct {
	Algorithm  string
	BufferSize int

	// TrustModTime declares a pair identical, without reading either file, when
	// both modification times are exactly equal. This assumes synchronized
	// copies share timestamps; a copy that preserves mtime but not content is
	// reported as identical.
	TrustModTime bool
}
