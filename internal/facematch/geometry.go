package facematch

import "sort"

// ComputeIoU calculates Intersection over Union between two bounding boxes.
// bbox1 and bbox2 are [x1, y1, x2, y2] in the same coordinate system.
func ComputeIoU(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := BBoxArea(bbox1) + BBoxArea(bbox2) - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

// BBoxArea returns the area of an [x1, y1, x2, y2] box, 0 for malformed boxes.
func BBoxArea(bbox []float64) float64 {
	if len(bbox) != 4 || bbox[2] <= bbox[0] || bbox[3] <= bbox[1] {
		return 0
	}
	return (bbox[2] - bbox[0]) * (bbox[3] - bbox[1])
}

// LargestBox returns the index of the box with the largest area, or -1 if none has an area.
// The camera loops use it to pick the person standing closest when a trigger key is pressed.
func LargestBox(boxes [][]float64) int {
	best, bestArea := -1, 0.0
	for i, b := range boxes {
		if a := BBoxArea(b); a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}

// SuppressOverlaps drops boxes that overlap a higher scoring box by more than iouThreshold
// and returns the indices of the kept boxes in their original order.
func SuppressOverlaps(boxes [][]float64, scores []float64, iouThreshold float64) []int {
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	score := func(i int) float64 {
		if i < len(scores) {
			return scores[i]
		}
		return 0
	}
	sort.SliceStable(order, func(a, b int) bool { return score(order[a]) > score(order[b]) })

	suppressed := make([]bool, len(boxes))
	for a, i := range order {
		if suppressed[i] {
			continue
		}
		for _, j := range order[a+1:] {
			if !suppressed[j] && ComputeIoU(boxes[i], boxes[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	kept := make([]int, 0, len(boxes))
	for i := range boxes {
		if !suppressed[i] {
			kept = append(kept, i)
		}
	}
	return kept
}
