package roblox

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"capedash/internal/domain"
)

// Where an image id was found. Reported in logs and in the resolution.
const (
	SourceTargetID    = "target_id"
	SourceCDNHost     = "image_url_cdn"
	SourceCDNHostAlt  = "image_url_cdn_alt"
	SourceURLSegment  = "image_url_segment"
	SourceDeliveryURL = "asset_delivery"
)

const (
	minImageIDDigits   = 9
	imageIDDigitsRegex = `(\d{9,})`
)

// Image URL shapes seen from the thumbnails API, most specific first. All of
// them are kept: which ones are still produced by Roblox is unknown.
var (
	cdnHostPattern    = regexp.MustCompile(`/tr\.rbxcdn\.com/` + imageIDDigitsRegex + `/`)
	cdnHostAltPattern = regexp.MustCompile(`rbxcdn\.com/` + imageIDDigitsRegex + `/`)
	segmentPattern    = regexp.MustCompile(`/` + imageIDDigitsRegex + `/`)
)

// extractFromEntry applies the extraction rules to one thumbnail entry in
// priority order. ok is false when nothing other than the asset id itself
// was found.
func extractFromEntry(assetID domain.AssetID, entry ThumbnailEntry) (domain.ImageID, string, bool) {
	if id := targetIDString(entry.TargetID); id != "" && !assetID.SameAs(id) {
		return domain.ImageID(id), SourceTargetID, true
	}
	imageURL := strings.TrimSpace(entry.ImageURL)
	if imageURL == "" {
		return "", "", false
	}
	if id, ok := matchImageID(cdnHostPattern, assetID, imageURL); ok {
		return id, SourceCDNHost, true
	}
	if id, ok := matchImageID(cdnHostAltPattern, assetID, imageURL); ok {
		return id, SourceCDNHostAlt, true
	}
	if id, ok := matchImageID(segmentPattern, assetID, imageURL); ok {
		return id, SourceURLSegment, true
	}
	return "", "", false
}

// extractFromDeliveryURL looks for an image id in the final redirect URL of
// the asset delivery service.
func extractFromDeliveryURL(assetID domain.AssetID, finalURL string) (domain.ImageID, bool) {
	return matchImageID(segmentPattern, assetID, finalURL)
}

// matchImageID returns the first match of pattern in s unless it is the
// asset id echoed back.
func matchImageID(pattern *regexp.Regexp, assetID domain.AssetID, s string) (domain.ImageID, bool) {
	m := pattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}
	id := m[1]
	if len(id) < minImageIDDigits || assetID.SameAs(id) {
		return "", false
	}
	return domain.ImageID(id), true
}

// targetIDString normalises the targetId field. Zero, null, negative and
// non-numeric values count as absent.
func targetIDString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		num = json.Number(strings.TrimSpace(s))
	}
	n, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil || n == 0 {
		return ""
	}
	return strconv.FormatUint(n, 10)
}
