package roblox

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"capedash/internal/domain"
)

func TestExtractFromEntry(t *testing.T) {
	const asset = domain.AssetID("123456789")
	tests := []struct {
		name       string
		targetID   string
		imageURL   string
		wantID     domain.ImageID
		wantSource string
	}{
		{name: "numeric target id", targetID: `987654321`, wantID: "987654321", wantSource: SourceTargetID},
		{name: "string target id", targetID: `"987654321"`, wantID: "987654321", wantSource: SourceTargetID},
		{name: "echoed target id falls to url", targetID: `123456789`, imageURL: "https://tr.rbxcdn.com/222333444/420/420/Image/Png", wantID: "222333444", wantSource: SourceCDNHost},
		{name: "null target id", targetID: `null`, imageURL: "https://tr.rbxcdn.com/222333444/420/420/Image/Png", wantID: "222333444", wantSource: SourceCDNHost},
		{name: "alternate cdn host", imageURL: "https://t5.rbxcdn.com/333444555/420/420/Image/Png", wantID: "333444555", wantSource: SourceCDNHostAlt},
		{name: "generic segment", imageURL: "https://images.example.com/assets/444555666/full.png", wantID: "444555666", wantSource: SourceURLSegment},
		{name: "short digits ignored", imageURL: "https://tr.rbxcdn.com/12345/420/420/Image/Png"},
		{name: "echoed url id", imageURL: "https://tr.rbxcdn.com/123456789/420/420/Image/Png"},
		{name: "hash url", imageURL: "https://tr.rbxcdn.com/180DAY-9f2c/420/420/Decal/Png/noFilter"},
		{name: "empty entry"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entry := ThumbnailEntry{ImageURL: tc.imageURL}
			if tc.targetID != "" {
				entry.TargetID = json.RawMessage(tc.targetID)
			}
			id, source, ok := extractFromEntry(asset, entry)
			if tc.wantID == "" {
				require.False(t, ok, "got %q from %s", id, source)
				return
			}
			require.True(t, ok)
			require.Equal(t, tc.wantID, id)
			require.Equal(t, tc.wantSource, source)
		})
	}
}

func TestExtractFromDeliveryURL(t *testing.T) {
	const asset = domain.AssetID("123456789")

	id, ok := extractFromDeliveryURL(asset, "https://c1.rbxcdn.com/555555555/asset.png")
	require.True(t, ok)
	require.EqualValues(t, "555555555", id)

	_, ok = extractFromDeliveryURL(asset, "https://c1.rbxcdn.com/123456789/asset.png")
	require.False(t, ok)

	_, ok = extractFromDeliveryURL(asset, "https://c1.rbxcdn.com/abcdef")
	require.False(t, ok)
}

func TestTargetIDString(t *testing.T) {
	require.Equal(t, "987654321", targetIDString(json.RawMessage(`987654321`)))
	require.Equal(t, "987654321", targetIDString(json.RawMessage(`" 987654321 "`)))
	require.Equal(t, "", targetIDString(json.RawMessage(`0`)))
	require.Equal(t, "", targetIDString(json.RawMessage(`-4`)))
	require.Equal(t, "", targetIDString(json.RawMessage(`"abc"`)))
	require.Equal(t, "", targetIDString(nil))
}
