package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"capedash/internal/domain"
	"capedash/internal/infra"
)

// Files written by the Discord bot.
const (
	PointsFile          = "points.json"
	PurchasesFile       = "purchases.json"
	TicketCounterFile   = "ticket_counter.json"
	CapeLogsFile        = "cape_logs.json"
	ModerationQuotaFile = "moderation_quota_data.json"
	EVMDQuotaFile       = "evmd_quota_data.json"
)

// Purchase is one entry of purchases.json. The bot adds fields over time so
// the raw document is kept alongside the fields the dashboard needs.
type Purchase map[string]any

// DecalID returns the decal id recorded for the purchase, if any.
func (p Purchase) DecalID() string { return stringField(p, "decal_id") }

// Timestamp returns the purchase timestamp as written by the bot.
func (p Purchase) Timestamp() string { return stringField(p, "timestamp") }

// BotData exposes typed reads over the bot's files. Missing and corrupt files
// read as empty: the bot rewrites them at any time and a half-written file
// must not break the dashboard.
type BotData struct {
	files  *FileStore
	logger *infra.Logger
}

// NewBotData wraps a FileStore.
func NewBotData(files *FileStore, logger *infra.Logger) *BotData {
	return &BotData{files: files, logger: infra.LoggerOrDiscard(logger)}
}

func (b *BotData) load(ctx context.Context, key string, v any) bool {
	found, err := b.files.ReadJSON(ctx, key, v)
	if err != nil {
		b.logger.Warn().Err(err).Str("file", key).Msg("storage: unreadable bot data file")
		return false
	}
	return found
}

// Points returns the point balance of a user, zero when unknown.
func (b *BotData) Points(ctx context.Context, userID string) int {
	var points map[string]any
	if !b.load(ctx, PointsFile, &points) {
		return 0
	}
	return intValue(points[userID])
}

// UsersWithPoints counts entries in points.json.
func (b *BotData) UsersWithPoints(ctx context.Context) int {
	var points map[string]json.RawMessage
	if !b.load(ctx, PointsFile, &points) {
		return 0
	}
	return len(points)
}

// AllPurchases returns purchases.json keyed by Discord user id. Values that
// are not lists of objects are skipped.
func (b *BotData) AllPurchases(ctx context.Context) map[string][]Purchase {
	var raw map[string]json.RawMessage
	if !b.load(ctx, PurchasesFile, &raw) {
		return map[string][]Purchase{}
	}
	out := make(map[string][]Purchase, len(raw))
	for userID, doc := range raw {
		var items []json.RawMessage
		if err := decodeJSON(doc, &items); err != nil {
			continue
		}
		for _, item := range items {
			var p Purchase
			if err := decodeJSON(item, &p); err != nil || p == nil {
				continue
			}
			out[userID] = append(out[userID], p)
		}
	}
	return out
}

// Purchases returns the purchase history of one user, never nil.
func (b *BotData) Purchases(ctx context.Context, userID string) []Purchase {
	if list := b.AllPurchases(ctx)[userID]; list != nil {
		return list
	}
	return []Purchase{}
}

// CompletedPurchases counts all purchases across users.
func (b *BotData) CompletedPurchases(ctx context.Context) int {
	total := 0
	for _, list := range b.AllPurchases(ctx) {
		total += len(list)
	}
	return total
}

// FindPurchaseByDecal returns the first purchase whose decal id matches.
func (b *BotData) FindPurchaseByDecal(ctx context.Context, decalID string) (Purchase, bool) {
	all := b.AllPurchases(ctx)
	for _, userID := range sortedKeys(all) {
		for _, p := range all[userID] {
			if p.DecalID() == decalID {
				return p, true
			}
		}
	}
	return nil, false
}

// TicketCounter returns the bot's running ticket number.
func (b *BotData) TicketCounter(ctx context.Context) int {
	var doc map[string]any
	if !b.load(ctx, TicketCounterFile, &doc) {
		return 0
	}
	return intValue(doc["counter"])
}

// CapeLogs normalises cape_logs.json. Two layouts exist: {"capes": [...]}
// and an object of entries keyed by an arbitrary id with a "_note" key.
func (b *BotData) CapeLogs(ctx context.Context) []domain.CapeRecord {
	var doc map[string]json.RawMessage
	if !b.load(ctx, CapeLogsFile, &doc) {
		return nil
	}
	var entries []map[string]any
	if capes, ok := doc["capes"]; ok {
		var list []json.RawMessage
		if err := decodeJSON(capes, &list); err == nil {
			for _, raw := range list {
				var entry map[string]any
				if err := decodeJSON(raw, &entry); err == nil && entry != nil {
					entries = append(entries, entry)
				}
			}
			return capeRecords(entries)
		}
	}
	for _, key := range sortedKeys(doc) {
		if key == "_note" {
			continue
		}
		var entry map[string]any
		if err := decodeJSON(doc[key], &entry); err == nil && entry != nil {
			entries = append(entries, entry)
		}
	}
	return capeRecords(entries)
}

// FindCape returns the cape log entry for an asset id.
func (b *BotData) FindCape(ctx context.Context, assetID string) (domain.CapeRecord, bool) {
	for _, rec := range b.CapeLogs(ctx) {
		if rec.AssetID == assetID {
			return rec, true
		}
	}
	return domain.CapeRecord{}, false
}

// ModerationQuota returns the raw moderation quota document.
func (b *BotData) ModerationQuota(ctx context.Context) map[string]any {
	return b.rawDocument(ctx, ModerationQuotaFile)
}

// EVMDQuota returns the raw EVMD quota document.
func (b *BotData) EVMDQuota(ctx context.Context) map[string]any {
	return b.rawDocument(ctx, EVMDQuotaFile)
}

func (b *BotData) rawDocument(ctx context.Context, key string) map[string]any {
	var doc map[string]any
	if !b.load(ctx, key, &doc) || doc == nil {
		return map[string]any{}
	}
	return doc
}

func capeRecords(entries []map[string]any) []domain.CapeRecord {
	records := make([]domain.CapeRecord, 0, len(entries))
	for _, e := range entries {
		assetID := firstString(e, "asset_id", "decal_id")
		imageID := firstString(e, "image_id", "asset_id", "decal_id")
		username := stringField(e, "username")
		if username == "" {
			username = "Unknown"
		}
		records = append(records, domain.CapeRecord{
			DecalID:       assetID,
			AssetID:       assetID,
			ImageID:       imageID,
			TicketNumber:  stringField(e, "ticket_number"),
			Timestamp:     stringField(e, "timestamp"),
			DiscordUserID: stringField(e, "discord_user_id"),
			Username:      username,
		})
	}
	return records
}

// PurchaseRecords turns purchases into cape records, used when the cape log
// is empty.
func PurchaseRecords(all map[string][]Purchase) []domain.CapeRecord {
	var records []domain.CapeRecord
	for _, userID := range sortedKeys(all) {
		for _, p := range all[userID] {
			decal := p.DecalID()
			records = append(records, domain.CapeRecord{
				DecalID:       decal,
				AssetID:       decal,
				ImageID:       decal,
				TicketNumber:  stringField(p, "ticket_number"),
				Timestamp:     p.Timestamp(),
				DiscordUserID: userID,
				Username:      "Unknown",
			})
		}
	}
	return records
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return stringField(m, k)
		}
	}
	return ""
}

// stringField renders scalar JSON values as text. Numbers keep the digits
// the bot wrote.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return int(f)
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
