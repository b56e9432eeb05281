package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"modlog/internal/storage"
)

func (s *Server) transcriptListHandler(ctx *gin.Context) {
	limit, offset, ok := s.pagination(ctx)
	if !ok {
		return
	}

	filter := storage.TranscriptFilter{
		GuildID:   ctx.Query("guildId"),
		ChannelID: ctx.Query("channelId"),
	}

	res, err := s.transcripts.List(ctx, filter, limit, offset)
	if err != nil {
		s.Logger.Error("Error listing transcripts", zap.Error(err), zap.Any("filter", filter))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error listing transcripts",
		})
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (s *Server) transcriptGetHandler(ctx *gin.Context) {
	id := ctx.Param("id")

	entry, err := s.transcripts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{
				"message": "transcript not found",
			})
			return
		}
		s.Logger.Error("Error fetching transcript", zap.Error(err), zap.String("transcript_id", id))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"message": "Error fetching transcript",
		})
		return
	}

	ctx.JSON(http.StatusOK, entry)
}

// pagination reads limit and offset, writing a 400 and returning false on
// malformed values. Limits are clamped to the configured maximum.
func (s *Server) pagination(ctx *gin.Context) (limit, offset int, ok bool) {
	limit = s.Config.DefaultPageSize
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"message": "invalid limit",
			})
			return 0, 0, false
		}
		if parsed > 0 {
			limit = parsed
		}
	}
	if limit > s.Config.MaxPageSize {
		limit = s.Config.MaxPageSize
	}

	if raw := ctx.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"message": "invalid offset",
			})
			return 0, 0, false
		}
		offset = parsed
	}
	return limit, offset, true
}
