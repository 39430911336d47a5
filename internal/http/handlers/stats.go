package handlers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"capedash/internal/discord"
	"capedash/internal/domain"
)

// Stats serves live statistics from the bot when it is reachable, and
// otherwise derives them from the bot's files and the guild counts. It
// always answers 200.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.Bot != nil {
		live, ok, err := a.Bot.Stats(ctx)
		if err == nil && ok {
			a.log(r).Debug().Interface("total_members", live["totalMembers"]).Msg("stats: using bot api")
			a.json(w, http.StatusOK, live)
			return
		}
		if err != nil {
			a.log(r).Debug().Err(err).Msg("stats: bot api not available")
		}
	}
	if a.Data == nil {
		a.json(w, http.StatusOK, domain.DefaultStats())
		return
	}

	var (
		totalTickets, completed, users int
		counts                         discord.GuildCounts
		serverID                       string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totalTickets = a.Data.TicketCounter(gctx)
		completed = a.Data.CompletedPurchases(gctx)
		users = a.Data.UsersWithPoints(gctx)
		return nil
	})
	if a.Guild != nil {
		serverID = a.Guild.MainGuildID()
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, 5*time.Second)
			defer cancel()
			c, err := a.Guild.GuildCounts(cctx)
			if err != nil {
				// Member counts are optional.
				a.log(r).Debug().Err(err).Msg("stats: guild counts unavailable")
				return nil
			}
			counts = c
			return nil
		})
	}
	_ = g.Wait()

	stats := domain.NewFileStats(totalTickets, completed, users, counts.Members, counts.Online, serverID)
	a.log(r).Info().
		Int("pending", stats.PendingTickets).
		Int("completed", stats.CompletedTickets).
		Int("members", stats.TotalMembers).
		Int("online", stats.OnlineUsers).
		Msg("stats: computed from files")
	a.json(w, http.StatusOK, stats)
}
