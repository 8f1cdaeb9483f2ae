package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// FeedService covers posts, comments and blessings.
type FeedService struct {
	client *gateway.Client
}

// List returns one page of the feed. Pages start at 1.
func (s *FeedService) List(ctx context.Context, page int) (*models.Page[models.Post], error) {
	out, err := gateway.Get[models.Page[models.Post]](ctx, s.client, "/posts", gateway.WithQuery("page", strconv.Itoa(max(page, 1))))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FeedService) Get(ctx context.Context, id string) (*models.Post, error) {
	if err := requireID("post", id); err != nil {
		return nil, err
	}
	post, err := gateway.Get[models.Post](ctx, s.client, gateway.Path("/posts/%s", id))
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *FeedService) Create(ctx context.Context, content string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: post content", shared.ErrMissingArgument)
	}
	post, err := gateway.Post[models.Post](ctx, s.client, "/posts", map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *FeedService) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	if err := requireID("post", postID); err != nil {
		return nil, err
	}
	return gateway.Get[[]models.Comment](ctx, s.client, gateway.Path("/posts/%s/comments", postID))
}

func (s *FeedService) Comment(ctx context.Context, postID, content string) (*models.Comment, error) {
	if err := requireID("post", postID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: comment content", shared.ErrMissingArgument)
	}
	out, err := gateway.Post[models.Comment](ctx, s.client, gateway.Path("/posts/%s/comments", postID), map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Bless adds the current user's blessing to a post.
func (s *FeedService) Bless(ctx context.Context, postID string) (*models.Blessing, error) {
	if err := requireID("post", postID); err != nil {
		return nil, err
	}
	out, err := gateway.Post[models.Blessing](ctx, s.client, gateway.Path("/posts/%s/blessings", postID), nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FeedService) Unbless(ctx context.Context, postID string) (*models.Blessing, error) {
	if err := requireID("post", postID); err != nil {
		return nil, err
	}
	out, err := gateway.Delete[models.Blessing](ctx, s.client, gateway.Path("/posts/%s/blessings", postID))
	if err != nil {
		return nil, err
	}
	return &out, nil
}
