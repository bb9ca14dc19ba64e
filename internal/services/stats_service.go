package services

import (
	"sort"
	"sync"
	"time"

	"github.com/subculture-collective/recaster/internal/engine"
	"github.com/subculture-collective/recaster/internal/models"
)

// StatsService serves the dashboard-facing GET /api/stats and
// GET /api/chart-data endpoints: corpus-wide aggregates plus the
// rolling recommendation-quality history produced by offline
// evaluation runs.
type StatsService struct {
	eng *engine.Engine

	historyMu sync.Mutex
	history   []models.QualitySample // bounded rolling quality history, most recent last
}

// NewStatsService builds a StatsService bound to eng.
func NewStatsService(eng *engine.Engine) *StatsService {
	return &StatsService{eng: eng}
}

const maxQualityHistory = 100

// RecordQualitySample appends one point to the rolling recommendation
// quality history, called after each scheduled offline evaluation run.
func (s *StatsService) RecordQualitySample(timestamp time.Time, ndcg10 float64) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, models.QualitySample{Timestamp: timestamp.Unix(), NDCG10: ndcg10})
	if len(s.history) > maxQualityHistory {
		s.history = s.history[len(s.history)-maxQualityHistory:]
	}
}

// Stats computes the current snapshot for GET /api/stats.
func (s *StatsService) Stats() models.StatsResponse {
	store := s.eng.Store()
	users := store.IterUsers()
	videos := store.IterVideos()
	events := store.RecentEvents(0)

	userSummaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		userSummaries = append(userSummaries, models.UserSummary{
			ID:                u.ID,
			SubscriptionCount: len(u.Subscriptions),
			WatchCount:        len(u.WatchHistory),
		})
	}
	sort.Slice(userSummaries, func(i, j int) bool { return userSummaries[i].ID < userSummaries[j].ID })

	videoSummaries := make([]models.VideoSummary, 0, len(videos))
	for _, v := range videos {
		videoSummaries = append(videoSummaries, models.VideoSummary{
			ID:        v.ID,
			Title:     v.Title,
			ChannelID: v.ChannelID,
			Views:     v.Metrics.Views,
			Likes:     v.Metrics.Likes,
		})
	}
	sort.Slice(videoSummaries, func(i, j int) bool { return videoSummaries[i].ID < videoSummaries[j].ID })

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	eventSummaries := make([]models.EventSummary, 0, len(events))
	interactionsToday := 0
	for _, ev := range events {
		eventSummaries = append(eventSummaries, models.EventSummary{
			UserID:     ev.UserID,
			VideoID:    ev.VideoID,
			Kind:       string(ev.Kind),
			OccurredAt: ev.OccurredAt.Unix(),
		})
		if ev.OccurredAt.After(cutoff) {
			interactionsToday++
		}
	}

	s.historyMu.Lock()
	var recommendationQuality float64
	if len(s.history) > 0 {
		recommendationQuality = s.history[len(s.history)-1].NDCG10
	}
	history := append([]models.QualitySample(nil), s.history...)
	s.historyMu.Unlock()

	return models.StatsResponse{
		UserCount:             len(users),
		VideoCount:            len(videos),
		InteractionsToday:     interactionsToday,
		RecommendationQuality: recommendationQuality,
		Users:                 userSummaries,
		Videos:                videoSummaries,
		Interactions:          eventSummaries,
		RecommendationHistory: history,
	}
}

// ChartData computes the corpus-wide breakdowns for GET /api/chart-data:
// category distribution, hour-of-day activity, and the top channels by
// total views.
func (s *StatsService) ChartData() models.ChartDataResponse {
	store := s.eng.Store()
	videos := store.IterVideos()
	events := store.RecentEvents(0)

	categoryDistribution := make(map[string]int64)
	channelViews := make(map[string]int64)
	channelVideoCount := make(map[string]int)
	for _, v := range videos {
		for category := range v.Categories {
			categoryDistribution[category]++
		}
		channelViews[v.ChannelID] += v.Metrics.Views
		channelVideoCount[v.ChannelID]++
	}

	var hourly [24]int64
	for _, ev := range events {
		hourly[ev.OccurredAt.Hour()]++
	}

	topChannels := make([]models.ChannelStat, 0, len(channelViews))
	for channelID, views := range channelViews {
		topChannels = append(topChannels, models.ChannelStat{
			ChannelID: channelID,
			Views:     views,
			Videos:    channelVideoCount[channelID],
		})
	}
	sort.Slice(topChannels, func(i, j int) bool {
		if topChannels[i].Views != topChannels[j].Views {
			return topChannels[i].Views > topChannels[j].Views
		}
		return topChannels[i].ChannelID < topChannels[j].ChannelID
	})
	const maxTopChannels = 10
	if len(topChannels) > maxTopChannels {
		topChannels = topChannels[:maxTopChannels]
	}

	return models.ChartDataResponse{
		CategoryDistribution: categoryDistribution,
		HourlyActivity:       hourly,
		TopChannels:          topChannels,
	}
}
