package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"modlog/internal/history"
	"modlog/internal/storage"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 365
)

func (s *Server) logChannelListHandler(ctx *gin.Context) {
	guildID := ctx.Param("guildId")

	channels, err := s.store.ListLogChannels(ctx, guildID)
	if err != nil {
		s.Logger.Error("Error fetching log channels", zap.Error(err), zap.String("guild_id", guildID))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error fetching log channels",
		})
		return
	}

	ctx.JSON(http.StatusOK, channels)
}

func (s *Server) logChannelSetHandler(ctx *gin.Context) {
	type body struct {
		ChannelID string `json:"channelId"`
	}

	guildID := ctx.Param("guildId")
	event := ctx.Param("event")
	if !history.IsEvent(event) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"message": "unknown event",
		})
		return
	}

	var b body
	if err := ctx.ShouldBindJSON(&b); err != nil || !isSnowflake(b.ChannelID) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"message": "missing or invalid channelId",
		})
		return
	}

	if err := s.store.SetLogChannel(ctx, guildID, event, b.ChannelID); err != nil {
		s.Logger.Error("Error setting log channel", zap.Error(err), zap.String("guild_id", guildID), zap.String("event", event))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error setting log channel",
		})
		return
	}

	ctx.JSON(http.StatusOK, storage.LogChannel{
		GuildID:   guildID,
		Event:     event,
		ChannelID: b.ChannelID,
		UpdatedAt: time.Now(),
	})
}

func (s *Server) logChannelDeleteHandler(ctx *gin.Context) {
	guildID := ctx.Param("guildId")
	event := ctx.Param("event")

	if err := s.store.DeleteLogChannel(ctx, guildID, event); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{
				"message": "log channel not configured",
			})
			return
		}
		s.Logger.Error("Error deleting log channel", zap.Error(err), zap.String("guild_id", guildID), zap.String("event", event))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error deleting log channel",
		})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (s *Server) historyHandler(ctx *gin.Context) {
	limit, offset, ok := s.pagination(ctx)
	if !ok {
		return
	}

	filter := storage.LogFilter{
		GuildID: ctx.Param("guildId"),
		Event:   ctx.Query("event"),
	}

	entries, err := s.store.ListLogEntries(ctx, filter, limit, offset)
	if err != nil {
		s.Logger.Error("Error fetching history", zap.Error(err), zap.String("guild_id", filter.GuildID))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error fetching history",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) statsHandler(ctx *gin.Context) {
	days := defaultStatsDays
	if raw := ctx.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxStatsDays {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"message": "days must be between 1 and 365",
			})
			return
		}
		days = parsed
	}

	guildID := ctx.Param("guildId")
	report, err := s.analytics.Report(ctx, guildID, time.Now().AddDate(0, 0, -days))
	if err != nil {
		s.Logger.Error("Error building stats", zap.Error(err), zap.String("guild_id", guildID))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error building stats",
		})
		return
	}

	ctx.JSON(http.StatusOK, report)
}

func isSnowflake(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}
