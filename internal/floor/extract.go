// Package floor turns the loosely formatted floor text of a listing
// ("B1/4층", "고/5층", "3층", "지하1층") into a model.FloorDescriptor.
package floor

import (
	"regexp"
	"strconv"
	"strings"

	"landfilter/internal/model"
)

// Qualitative floor markers
const (
	markerHigh = "고"
	markerLow  = "저"
	markerMid  = "중"
)

var (
	// floorWithTotal matches "<current>/<total>층"
	floorWithTotal = regexp.MustCompile(`(B?\d+|고|저|중)/(\d+)층`)
	// singleFloor matches "지하1층", "B2", "3층"
	singleFloor = regexp.MustCompile(`(지하|B)(\d+)층?|(\d+)층`)
)

// Extract parses text into a floor descriptor. Unrecognized text yields the
// zero descriptor with RawText set; it never fails.
func Extract(text string) model.FloorDescriptor {
	d, _ := extract(text)
	return d
}

// extract reports whether any floor pattern was recognized alongside the descriptor
func extract(text string) (model.FloorDescriptor, bool) {
	d := model.FloorDescriptor{RawText: strings.TrimSpace(text)}
	s := normalize(text)
	if s == "" {
		return d, false
	}

	if m := floorWithTotal.FindStringSubmatch(s); m != nil {
		total, err := strconv.Atoi(m[2])
		if err != nil {
			return d, false
		}
		return d, analyzeWithTotal(&d, m[1], total)
	}

	return d, analyzeSingle(&d, s)
}

// analyzeWithTotal classifies the current-floor token of a "<current>/<total>층" match
func analyzeWithTotal(d *model.FloorDescriptor, current string, total int) bool {
	switch {
	case strings.HasPrefix(current, "B"):
		n, err := strconv.Atoi(current[1:])
		if err != nil {
			return false
		}
		d.IsBasement = true
		d.Floor = intPtr(-n)
	case current == markerHigh:
		d.IsHighFloor = true
		d.Floor = intPtr(total)
	case current == markerLow:
		d.IsLowFloor = true
		d.Floor = intPtr(1)
	case current == markerMid:
		// recognized, but there is no honest estimate
	default:
		n, err := strconv.Atoi(current)
		if err != nil {
			return false
		}
		d.Floor = intPtr(n)
		d.IsHighFloor = n == total
	}
	return true
}

// analyzeSingle handles text without a total floor count
func analyzeSingle(d *model.FloorDescriptor, s string) bool {
	m := singleFloor.FindStringSubmatch(s)
	if m == nil {
		return false
	}

	if m[1] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return false
		}
		d.IsBasement = true
		d.Floor = intPtr(-n)
		return true
	}

	n, err := strconv.Atoi(m[3])
	if err != nil {
		return false
	}
	d.Floor = intPtr(n)
	return true
}

func intPtr(v int) *int {
	return &v
}
