package service

import (
	"context"
	"fmt"

	"github.com/yeisme/docshelf/pkg/queue"
)

// AddFavorite 收藏清单中的记录，已收藏时返回 false.
func (s *LibraryService) AddFavorite(ctx context.Context, id string) (bool, error) {
	rec, ok := s.Registry.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	added, err := s.Favorites.Add(ctx, rec)
	if added {
		s.published(queue.TopicFavoriteAdded, s.Events.FavoriteAdded(ctx, queue.FavoritePayload{Record: queue.RefOf(rec)}))
	}

	return added, err
}

// RemoveFavorite 取消收藏，幂等.
func (s *LibraryService) RemoveFavorite(ctx context.Context, id string) (bool, error) {
	rec, _ := s.Favorites.Get(id)

	removed, err := s.Favorites.Remove(ctx, id)
	if removed {
		s.published(queue.TopicFavoriteRemoved, s.Events.FavoriteRemoved(ctx, queue.FavoritePayload{Record: queue.RefOf(rec)}))
	}

	return removed, err
}
