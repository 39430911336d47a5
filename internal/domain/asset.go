package domain

import (
	"strconv"
	"strings"
)

// AssetID identifies a content item uploaded to Roblox. It is always the
// canonical decimal form of a positive integer.
type AssetID string

// ImageID identifies the rendered image backing an asset. It is only known
// once Roblox has finished moderating and processing the upload.
type ImageID string

func (id AssetID) String() string { return string(id) }

func (id ImageID) String() string { return string(id) }

// ParseAssetID validates raw and returns its canonical form. Empty input,
// anything other than ASCII digits, zero and values overflowing uint64 all
// yield ErrInvalidAssetID.
func ParseAssetID(raw string) (AssetID, error) {
	if raw == "" {
		return "", ErrInvalidAssetID
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", ErrInvalidAssetID
		}
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return "", ErrInvalidAssetID
	}
	return AssetID(strconv.FormatUint(n, 10)), nil
}

// SameAs reports whether candidate is textually the asset id itself. Roblox
// echoes the input id when no image mapping exists yet.
func (id AssetID) SameAs(candidate string) bool {
	return strings.TrimSpace(candidate) == string(id)
}

// CapeRecord is a normalised entry of the bot's cape log or, when the log is
// empty, a purchase that carried a decal id.
type CapeRecord struct {
	DecalID       string `json:"decal_id"`
	AssetID       string `json:"asset_id"`
	ImageID       string `json:"image_id"`
	TicketNumber  string `json:"ticket_number"`
	Timestamp     string `json:"timestamp"`
	DiscordUserID string `json:"discord_user_id"`
	Username      string `json:"username"`
}

