package board

import (
	"context"

	"github.com/chunxia/legion/aion"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher loads a single board payload.
type Fetcher interface {
	DaevanionBoard(ctx context.Context, characterID string, serverID, boardID int) (*aion.DaevanionBoard, error)
}

// Resolver fetches all boards of a character's class.
type Resolver struct {
	classes     *ClassStore
	fetcher     Fetcher
	concurrency int
	logger      *zap.Logger
}

// NewResolver creates a Resolver. concurrency <= 0 fetches every board at once.
func NewResolver(classes *ClassStore, fetcher Fetcher, concurrency int, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{classes: classes, fetcher: fetcher, concurrency: concurrency, logger: logger}
}

// Classes returns the class store backing the resolver.
func (r *Resolver) Classes() *ClassStore { return r.classes }

// Resolve fetches the boards configured for classID. It returns nil when the
// class is unknown or has no boards. Otherwise the result has one slot per
// configured board id, in configuration order; a slot is nil when its fetch
// failed. Resolve never returns an error.
func (r *Resolver) Resolve(ctx context.Context, classID int, characterID string, serverID int) []*aion.DaevanionBoard {
	if classID == 0 {
		r.logger.Warn("daevanion: class id missing", zap.String("character_id", characterID))
		return nil
	}
	ids := r.classes.BoardIDsByClassID(classID)
	if len(ids) == 0 {
		r.logger.Warn("daevanion: no board ids for class",
			zap.Int("class_id", classID), zap.String("character_id", characterID))
		return nil
	}
	if len(ids) != BoardsPerClass {
		r.logger.Warn("daevanion: unexpected board count",
			zap.Int("class_id", classID), zap.Int("boards", len(ids)))
	}
	return r.FetchAll(ctx, ids, characterID, serverID)
}

// FetchAll fetches ids concurrently and waits for every fetch to settle.
// Failed fetches leave a nil slot and never cancel the others.
func (r *Resolver) FetchAll(ctx context.Context, ids []int, characterID string, serverID int) []*aion.DaevanionBoard {
	boards := make([]*aion.DaevanionBoard, len(ids))
	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			b, err := r.fetcher.DaevanionBoard(ctx, characterID, serverID, id)
			if err != nil {
				r.logger.Warn("daevanion: board fetch failed",
					zap.Int("board_id", id),
					zap.String("character_id", characterID),
					zap.Error(err))
				return nil
			}
			boards[i] = b
			return nil
		})
	}
	_ = g.Wait()
	return boards
}
