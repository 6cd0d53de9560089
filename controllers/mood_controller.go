package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/mindease/chat"
	"github.com/cppla/mindease/checkin"
	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/recommend"
	"github.com/cppla/mindease/stats"
	"github.com/cppla/mindease/store"
	"github.com/cppla/mindease/utils"
)

const recommendationCachePrefix = "cache:recs:user:"

// cachedRecommendations remembers which check-in the items were built from so a
// write that raced with CreateEntry's invalidation is never served.
type cachedRecommendations struct {
	LatestEntryID uint                       `json:"latest_entry_id"`
	Items         []recommend.Recommendation `json:"items"`
}

func (c cachedRecommendations) validFor(latestEntryID uint) bool {
	return len(c.Items) > 0 && c.LatestEntryID == latestEntryID
}

// MoodController serves check-ins and everything derived from them.
type MoodController struct {
	moods     store.MoodStore
	builder   *recommend.Builder
	chat      *chat.Service
	messenger *checkin.Messenger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewMoodController wires the controller. cacheTTL bounds how long
// recommendations are reused between check-ins.
func NewMoodController(moods store.MoodStore, builder *recommend.Builder, chatSvc *chat.Service, messenger *checkin.Messenger, cacheTTL time.Duration) *MoodController {
	return &MoodController{
		moods:     moods,
		builder:   builder,
		chat:      chatSvc,
		messenger: messenger,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// CreateEntry records one check-in. Entries are immutable; a correction is a new entry.
func (m *MoodController) CreateEntry(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	type request struct {
		Score      *int       `json:"score" binding:"required"`
		Activities []string   `json:"activities"`
		Note       string     `json:"note"`
		Date       *time.Time `json:"date"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	activities := make([]string, 0, len(req.Activities))
	for _, a := range req.Activities {
		activities = append(activities, utils.SanitizeText(a))
	}
	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}

	entry, err := models.NewMoodEntry(userID, *req.Score, activities, utils.SanitizeText(req.Note), date, m.now())
	if err != nil {
		if respondValidation(ctx, err, 40011) {
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40011, err.Error())
		return
	}

	if err := m.moods.Append(ctx.Request.Context(), entry); err != nil {
		respondStoreError(ctx, err, 50010, "failed to save mood entry")
		return
	}
	utils.CacheDelete(ctx.Request.Context(), recommendationCacheKey(userID))

	utils.Created(ctx, entry)
}

// ListEntries returns entries for period=day|week|month|all, oldest first.
// A missing or unrecognised period lists today's entries.
func (m *MoodController) ListEntries(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	period := strings.ToLower(strings.TrimSpace(ctx.Query("period")))
	period, since := periodStart(period, m.now())

	entries, err := m.moods.ListSince(ctx.Request.Context(), userID, since)
	if err != nil {
		respondStoreError(ctx, err, 50011, "failed to load mood entries")
		return
	}
	utils.Success(ctx, gin.H{
		"period": period,
		"items":  entries,
	})
}

// Stats recomputes statistics from the full history at request time.
func (m *MoodController) Stats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	entries, err := m.moods.ListSince(ctx.Request.Context(), userID, nil)
	if err != nil {
		respondStoreError(ctx, err, 50012, "failed to load mood entries")
		return
	}
	utils.Success(ctx, stats.Calculate(entries, m.now()))
}

// Recommendations returns personalised suggestions. Only service-generated
// results are cached, so a fallback is retried on the next request.
func (m *MoodController) Recommendations(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	key := recommendationCacheKey(userID)
	var cached cachedRecommendations
	if utils.CacheGetJSON(ctx.Request.Context(), key, &cached) {
		latestID, err := m.moods.LatestID(ctx.Request.Context(), userID)
		if err != nil {
			respondStoreError(ctx, err, 50013, "failed to load mood entries")
			return
		}
		if cached.validFor(latestID) {
			utils.Success(ctx, gin.H{"items": cached.Items, "fallback": false, "cached": true})
			return
		}
	}

	entries, err := m.moods.ListSince(ctx.Request.Context(), userID, nil)
	if err != nil {
		respondStoreError(ctx, err, 50013, "failed to load mood entries")
		return
	}

	req := recommend.Request{
		Stats:               stats.Calculate(entries, m.now()),
		Recent:              recommend.LastN(entries, recommend.MaxRecentEntries),
		ConversationSummary: m.chat.MoodSummary(ctx.Request.Context(), userID),
	}
	recs, fallback := m.builder.Build(ctx.Request.Context(), req)
	if !fallback {
		utils.CacheSetJSON(ctx.Request.Context(), key, cachedRecommendations{
			LatestEntryID: newestEntryID(entries),
			Items:         recs,
		}, m.cacheTTL)
	}
	utils.Success(ctx, gin.H{"items": recs, "fallback": fallback, "cached": false})
}

// CheckIn evaluates whether the app should reach out and, if so, with what message.
func (m *MoodController) CheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	recent, err := m.moods.Recent(ctx.Request.Context(), userID, 3)
	if err != nil {
		respondStoreError(ctx, err, 50014, "failed to load mood entries")
		return
	}
	lastChat, err := m.chat.LastActivity(ctx.Request.Context(), userID)
	if err != nil {
		respondStoreError(ctx, err, 50015, "failed to load chat activity")
		return
	}

	assessment := checkin.Evaluate(recent, lastChat, m.now())
	resp := gin.H{
		"triggered":     assessment.Triggered(),
		"trigger":       assessment.Trigger,
		"last_activity": assessment.LastActivity,
	}
	if assessment.Triggered() {
		resp["message"] = m.messenger.Message(ctx.Request.Context(), assessment, recent)
	}
	utils.Success(ctx, resp)
}

// newestEntryID returns the highest id among entries, 0 when there are none.
func newestEntryID(entries []models.MoodEntry) uint {
	var id uint
	for _, e := range entries {
		if e.ID > id {
			id = e.ID
		}
	}
	return id
}

func recommendationCacheKey(userID uint) string {
	return recommendationCachePrefix + strconv.FormatUint(uint64(userID), 10)
}

// periodStart returns the effective period and its lower bound in now's
// location. Weeks start on Sunday; anything unrecognised means "day".
func periodStart(period string, now time.Time) (string, *time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var since time.Time
	switch period {
	case "all":
		return period, nil
	case "week":
		since = today.AddDate(0, 0, -int(today.Weekday()))
	case "month":
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		period, since = "day", today
	}
	return period, &since
}
