package reconciler

import (
	"context"

	"p2p-reconciler/internal/models"
	"p2p-reconciler/internal/stats"
	"p2p-reconciler/internal/storage"
	"p2p-reconciler/pkg/apperrors"
)

// Default page sizes of the read views.
const (
	// DefaultAdminPageSize paginates the global and leaderboard views.
	DefaultAdminPageSize = 10
	// DefaultUserPageSize paginates an end user's own match list.
	DefaultUserPageSize = 5
)

// MatchPage is one page of matches plus the statistics of the whole
// filtered set, not just the page.
type MatchPage struct {
	Matches     []models.Match   `json:"matches"`
	Stats       stats.MatchStats `json:"stats"`
	TotalPages  int              `json:"total_pages"`
	CurrentPage int              `json:"current_page"`
}

// UserMatchStats decorates one user with the match statistics of the
// requested range.
type UserMatchStats struct {
	User       models.User      `json:"user"`
	MatchCount int              `json:"match_count"`
	Stats      stats.MatchStats `json:"stats"`
}

// LeaderboardPage is one page of the per-user leaderboard plus totals over
// all matches in range.
type LeaderboardPage struct {
	Users       []UserMatchStats `json:"users"`
	TotalStats  stats.MatchStats `json:"total_stats"`
	TotalPages  int              `json:"total_pages"`
	CurrentPage int              `json:"current_page"`
}

// GetAllMatches returns the global view: matches where either the internal
// trade time or the external approval time falls in range, newest first.
func (s *Service) GetAllMatches(ctx context.Context, startDate, endDate string, page, pageSize int) (*MatchPage, error) {
	window, err := ParseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	filter := storage.MatchFilter{Range: window}
	return s.matchPage(ctx, filter, page, defaultPageSize(pageSize, DefaultAdminPageSize))
}

// GetUserMatches returns one user's matches with the internal trade time in
// range, newest first.
func (s *Service) GetUserMatches(ctx context.Context, userID int64, startDate, endDate string, page, pageSize int) (*MatchPage, error) {
	window, err := ParseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	filter := storage.MatchFilter{Range: window, UserID: userID}
	return s.matchPage(ctx, filter, page, defaultPageSize(pageSize, DefaultUserPageSize))
}

// GetUsersWithMatchStats returns the leaderboard: every user owning at
// least one matched transaction in range, decorated with per-user match
// statistics, plus totals over all matches in range.
func (s *Service) GetUsersWithMatchStats(ctx context.Context, startDate, endDate string, page, pageSize int) (*LeaderboardPage, error) {
	window, err := ParseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	if pageSize = defaultPageSize(pageSize, DefaultAdminPageSize); page < 1 {
		page = 1
	}

	pagination := storage.Pagination{Page: page, PageSize: pageSize}
	users, err := s.store.UsersWithMatches(ctx, window, &pagination)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeReadFailed, "load leaderboard users", err)
	}

	totalUsers, err := s.store.CountUsersWithMatches(ctx, window)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeReadFailed, "count leaderboard users", err)
	}

	result := &LeaderboardPage{
		Users:       make([]UserMatchStats, 0, len(users)),
		TotalPages:  storage.TotalPages(totalUsers, pageSize),
		CurrentPage: page,
	}

	for _, user := range users {
		userMatches, err := s.store.Matches(ctx, storage.MatchFilter{Range: window, UserID: user.ID}, nil)
		if err != nil {
			return nil, apperrors.StorageError(apperrors.CodeReadFailed, "load user matches", err)
		}

		result.Users = append(result.Users, UserMatchStats{
			User:       user,
			MatchCount: len(userMatches),
			Stats:      stats.Compute(userMatches),
		})
	}

	allMatches, err := s.store.Matches(ctx, storage.MatchFilter{Range: window, InternalOnly: true}, nil)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeReadFailed, "load matches for totals", err)
	}
	result.TotalStats = stats.Compute(allMatches)

	return result, nil
}

// matchPage assembles a MatchPage for any match filter. Stats always cover
// the complete filtered set.
func (s *Service) matchPage(ctx context.Context, filter storage.MatchFilter, page, pageSize int) (*MatchPage, error) {
	if page < 1 {
		page = 1
	}

	pagination := storage.Pagination{Page: page, PageSize: pageSize}
	matches, err := s.store.Matches(ctx, filter, &pagination)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeReadFailed, "load matches", err)
	}

	total, err := s.store.CountMatches(ctx, filter)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeReadFailed, "count matches", err)
	}

	all, err := s.store.Matches(ctx, filter, nil)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeReadFailed, "load matches for stats", err)
	}

	return &MatchPage{
		Matches:     matches,
		Stats:       stats.Compute(all),
		TotalPages:  storage.TotalPages(total, pageSize),
		CurrentPage: page,
	}, nil
}

func defaultPageSize(requested, fallback int) int {
	if requested < 1 {
		return fallback
	}
	return requested
}
