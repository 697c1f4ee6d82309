package scoring

// DefaultThreshold is the IoU a pairing needs to count as a match.
const DefaultThreshold = 0.5

// Result summarizes a graded submission.
type Result struct {
	Matches     int     `json:"matches"`
	GroundTruth int     `json:"groundTruth"`
	Predictions int     `json:"predictions"`
	Score       float64 `json:"score"`
}

// Matches counts optimally paired boxes whose IoU reaches threshold.
func Matches(truth, predicted []Box, threshold float64) int {
	if len(truth) == 0 || len(predicted) == 0 {
		return 0
	}
	weights := make([][]float64, len(truth))
	for i, gt := range truth {
		weights[i] = make([]float64, len(predicted))
		for j, p := range predicted {
			weights[i][j] = IoU(gt, p)
		}
	}
	matches := 0
	for _, pair := range MaxAssignment(weights) {
		if weights[pair.Row][pair.Col] >= threshold {
			matches++
		}
	}
	return matches
}

// Grade scores predictions against ground truth. An empty submission for a
// clip with no ground truth is a perfect score.
func Grade(truth, predicted []Box, threshold float64) Result {
	res := Result{GroundTruth: len(truth), Predictions: len(predicted)}
	total := len(truth) + len(predicted)
	if total == 0 {
		res.Score = 1
		return res
	}
	res.Matches = Matches(truth, predicted, threshold)
	res.Score = 2 * float64(res.Matches) / float64(total)
	return res
}
