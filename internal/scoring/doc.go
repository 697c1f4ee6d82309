// Package scoring grades validation submissions against ground-truth boxes.
//
// Boxes are compared by intersection over union. Predictions are paired with
// ground truth by an optimal one-to-one assignment that maximizes total IoU,
// and a pair counts as a match when its IoU reaches the threshold. The score
// is the F1-style ratio 2·matches / (ground truth + predictions).
package scoring
