package models

// ExtractionParams is the immutable parameter set for one extraction
// request. Start/End of 0 mean unbounded; BurnSubIndex of -1 means no
// subtitle burn-in.
type ExtractionParams struct {
	VideoPath    string
	Start        float64
	End          float64
	Width        int
	Method       Method
	Reuse        bool // ignore method-specific parameters when matching
	BurnSubIndex int
	Force        bool // rebuild even if the existing manifest validates
}
