package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/ui"
	"github.com/urfave/cli/v3"
)

const dateLayout = "Mon Jan 2 2006 15:04"

// BandsList prints the bands the user belongs to.
func (r *Runner) BandsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	bands, err := r.svc.Bands.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bands: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(bands, cmd.Bool("pretty"))
	}

	rows := make([][]string, 0, len(bands))
	for _, b := range bands {
		rows = append(rows, []string{b.ID, b.Name, ui.Truncate(b.Description, 40)})
	}
	return r.writePlain("%s\n", ui.Table(r.paint, []string{"ID", "NAME", "DESCRIPTION"}, rows))
}

// BandsShow prints one band and its members.
func (r *Runner) BandsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: band id", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	band, err := r.svc.Bands.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch band: %w", err)
	}
	if len(band.Members) == 0 {
		members, err := r.svc.Bands.Members(ctx, id)
		if err != nil {
			r.logger.Warn("failed to fetch members", "band", id, "error", err)
		}
		band.Members = members
	}
	if cmd.Bool("json") {
		return r.writeJSON(band, cmd.Bool("pretty"))
	}

	r.writePlainHeader(band.Name)
	if band.Description != "" {
		r.writePlain("%s\n", band.Description)
	}

	rows := make([][]string, 0, len(band.Members))
	for _, m := range band.Members {
		admin := ""
		if m.Admin {
			admin = "admin"
		}
		rows = append(rows, []string{m.Name, m.Role, admin})
	}
	return r.writePlain("\n%s\n", ui.Table(r.paint, []string{"MEMBER", "ROLE", ""}, rows))
}

// EventsList prints a band's events.
func (r *Runner) EventsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	events, err := r.svc.Events.List(ctx, cmd.String("band"))
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(events, cmd.Bool("pretty"))
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.ID,
			e.StartsAt.Local().Format(dateLayout),
			e.Title,
			e.Location,
			strconv.Itoa(len(e.SongIDs)),
		})
	}
	return r.writePlain("%s\n", ui.Table(r.paint, []string{"ID", "WHEN", "TITLE", "WHERE", "SONGS"}, rows))
}

// SongsList prints a band's songs.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	songs, err := r.svc.Songs.List(ctx, cmd.String("band"))
	if err != nil {
		return fmt.Errorf("failed to list songs: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(songs, cmd.Bool("pretty"))
	}

	rows := make([][]string, 0, len(songs))
	for _, s := range songs {
		bpm := ""
		if s.BPM > 0 {
			bpm = strconv.Itoa(s.BPM)
		}
		rows = append(rows, []string{s.ID, s.Title, s.Artist, s.Key, bpm, strings.Join(s.Tags, ", ")})
	}
	return r.writePlain("%s\n", ui.Table(r.paint, []string{"ID", "TITLE", "ARTIST", "KEY", "BPM", "TAGS"}, rows))
}

// FeedList prints one page of the feed.
func (r *Runner) FeedList(ctx context.Context, cmd *cli.Command) error {
	page := cmd.Int("page")
	if page < 1 {
		return fmt.Errorf("%w: --page must be at least 1", shared.ErrInvalidFlag)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	posts, err := r.svc.Feed.List(ctx, page)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(posts, cmd.Bool("pretty"))
	}

	for _, p := range posts.Items {
		blessed := ""
		if p.Blessed {
			blessed = " " + r.paint.OK("(blessed)")
		}
		r.writePlain("%s  %s\n", r.paint.Title(p.AuthorName), r.paint.Help(p.CreatedAt.Local().Format(time.RFC822)))
		r.writePlain("%s\n", p.Content)
		r.writePlain("%s\n\n", r.paint.Help(fmt.Sprintf("%s · %d blessings · %d comments", p.ID, p.BlessCount, p.CommentCount))+blessed)
	}
	return r.writePlain("%s\n", r.paint.Help(fmt.Sprintf("page %d, %d posts total", posts.Page, posts.Total)))
}

// FeedComments prints the comments on a post.
func (r *Runner) FeedComments(ctx context.Context, cmd *cli.Command) error {
	postID := cmd.StringArg("post")
	if postID == "" {
		return fmt.Errorf("%w: post id", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	comments, err := r.svc.Feed.Comments(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to fetch comments: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(comments, cmd.Bool("pretty"))
	}

	rows := make([][]string, 0, len(comments))
	for _, c := range comments {
		author := c.AuthorName
		if author == "" {
			author = c.AuthorID
		}
		rows = append(rows, []string{c.ID, author, ui.Truncate(c.Content, 60)})
	}
	return r.writePlain("%s\n", ui.Table(r.paint, []string{"ID", "AUTHOR", "COMMENT"}, rows))
}

// FeedComment adds a comment to a post.
func (r *Runner) FeedComment(ctx context.Context, cmd *cli.Command) error {
	postID := cmd.StringArg("post")
	if postID == "" {
		return fmt.Errorf("%w: post id", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	comment, err := r.svc.Feed.Comment(ctx, postID, cmd.String("message"))
	if err != nil {
		return fmt.Errorf("failed to comment: %w", err)
	}
	return r.writePlain("%s Comment %s added\n", r.paint.OK("✓"), comment.ID)
}

// FeedBless blesses a post, or removes the blessing with --undo.
func (r *Runner) FeedBless(ctx context.Context, cmd *cli.Command) error {
	postID := cmd.StringArg("post")
	if postID == "" {
		return fmt.Errorf("%w: post id", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	bless := r.svc.Feed.Bless
	verb := "Blessed"
	if cmd.Bool("undo") {
		bless = r.svc.Feed.Unbless
		verb = "Removed blessing from"
	}

	b, err := bless(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to update blessing: %w", err)
	}
	return r.writePlain("%s %s %s (%d blessings)\n", r.paint.OK("✓"), verb, postID, b.Count)
}
