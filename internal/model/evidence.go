package model

// FetchStatus records whether a document could be retrieved
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchError   FetchStatus = "error"
)

// Document is a single piece of web evidence returned by the evidence client
type Document struct {
	URL    string      `json:"url"`
	Text   string      `json:"text"`            // Extracted visible text, truncated
	Status FetchStatus `json:"status"`          // success or error
	Rank   int         `json:"rank"`            // Position in the search results (0-based)
	Error  string      `json:"error,omitempty"` // Fetch failure reason
}

// ScoredDocument is a Document rated against a claim
type ScoredDocument struct {
	Document
	Credibility float64       `json:"credibility"` // 0-100
	Rationale   string        `json:"rationale"`
	Authority   AuthorityTier `json:"authority"`
	Fallback    bool          `json:"fallback"` // Score is the neutral default
}

// NeutralCredibility is assigned when a document cannot be scored
const NeutralCredibility = 50.0

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Laws, statutes, academic papers, official documents
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites, forums
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// ClampScore bounds a credibility score to [0, 100]
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
