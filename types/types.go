package types

// Label is one tag returned by the external classification service
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// AuthenticityVerdict holds the outcome of comparing one candidate image
// against the reference imagery
type AuthenticityVerdict struct {
	Matched           bool
	SupportingMatches int
	Source            string
}

// AuthenticityResult is the final, externally visible verification artifact
type AuthenticityResult struct {
	Score          int      `json:"Authenticity_Score"`
	Issues         []string `json:"Detected_Issues"`
	Recommendation string   `json:"Recommendation"`

	// MatchedImage identifies the accepted candidate for audit logging.
	// It is not part of the serialized result.
	MatchedImage string `json:"-"`
}

// InspectionReport holds the outcome of the cleanliness/privacy checks
type InspectionReport struct {
	Score          int      `json:"Score"`
	Issues         []string `json:"Detected_Issues"`
	Recommendation string   `json:"Recommendation"`
}
