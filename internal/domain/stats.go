package domain

import "fmt"

// PricePerCape is the flat price used to estimate revenue from completed
// purchases.
const PricePerCape = 40

// Stats is the payload of the dashboard statistics endpoint. Field names
// follow what the dashboard script reads.
type Stats struct {
	PendingTickets   int    `json:"pendingTickets"`
	CompletedTickets int    `json:"completedTickets"`
	OnlineUsers      int    `json:"onlineUsers"`
	TotalMembers     int    `json:"totalMembers"`
	BotUptime        string `json:"botUptime"`
	CapesGenerated   int    `json:"capesGenerated"`
	Revenue          string `json:"revenue"`
	TotalUsers       int    `json:"totalUsers"`
	TotalTickets     int    `json:"totalTickets"`
	ServerID         string `json:"serverId,omitempty"`
}

// DefaultStats is served when nothing else can be computed.
func DefaultStats() Stats {
	return Stats{BotUptime: "99.9%", Revenue: "$0"}
}

// NewFileStats derives dashboard statistics from the counters the bot keeps
// on disk. Negative intermediate values are clamped to zero.
func NewFileStats(totalTickets, completed, usersWithPoints, members, online int, serverID string) Stats {
	totalTickets = max(0, totalTickets)
	completed = max(0, completed)
	return Stats{
		PendingTickets:   max(0, totalTickets-completed),
		CompletedTickets: completed,
		OnlineUsers:      max(0, online),
		TotalMembers:     max(0, members),
		BotUptime:        "99.9%",
		CapesGenerated:   completed,
		Revenue:          fmt.Sprintf("$%d", completed*PricePerCape),
		TotalUsers:       max(0, usersWithPoints),
		TotalTickets:     totalTickets,
		ServerID:         serverID,
	}
}
