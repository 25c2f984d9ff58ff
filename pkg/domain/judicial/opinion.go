package judicial

const (
	MinScore = 1
	MaxScore = 5
)

// Opinion is one judge's verdict on one criterion.
type Opinion struct {
	Judge         Judge    `json:"judge"`
	CriterionID   string   `json:"criterion_id"`
	Score         int      `json:"score"`
	Argument      string   `json:"argument"`
	CitedEvidence []string `json:"cited_evidence"`
}

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Normalize stamps the authoritative judge and criterion onto an opinion
// produced by an untrusted source and clamps its score.
func Normalize(op Opinion, judge Judge, criterionID string) Opinion {
	op.Judge = judge
	op.CriterionID = criterionID
	op.Score = ClampScore(op.Score)
	if op.CitedEvidence == nil {
		op.CitedEvidence = []string{}
	}
	return op
}
