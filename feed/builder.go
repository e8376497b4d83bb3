package feed

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"party-planner/domain"
	"party-planner/repository"
	"party-planner/storage"
)

// Builder composes the repositories into the calendar views and runs the
// party date cascade.
type Builder struct {
	repos *repository.Repositories
	loc   *time.Location
}

func NewBuilder(repos *repository.Repositories, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{repos: repos, loc: loc}
}

// Location is the zone calendar days are computed in.
func (b *Builder) Location() *time.Location { return b.loc }

// Calendar loads events and tasks and returns the merged feed.
func (b *Builder) Calendar(ctx context.Context) (Feed, error) {
	events, err := b.repos.Events.List(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := b.repos.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	return MergedFeed(events, tasks, b.loc), nil
}

// CascadePartyDate rewrites the events that follow the party date. The
// events collection is written once; on failure nothing is persisted and a
// *domain.CascadeError is returned.
func (b *Builder) CascadePartyDate(ctx context.Context, newDate time.Time) ([]domain.Event, error) {
	events, err := b.repos.Events.List(ctx)
	if err != nil {
		return nil, err
	}
	updated, moved := CascadePartyDate(events, newDate, b.loc)
	if moved == 0 {
		return events, nil
	}
	saved, err := b.repos.Events.ReplaceAll(ctx, updated)
	if err != nil {
		return nil, &domain.CascadeError{Updated: moved, Err: err}
	}
	return saved, nil
}

// SavePartyInfo validates info and stores it together with the cascaded
// events in a single all-or-nothing write.
func (b *Builder) SavePartyInfo(ctx context.Context, info domain.PartyInfo) (*domain.PartyInfo, []domain.Event, error) {
	info, err := b.repos.Party.Prepare(info)
	if err != nil {
		return nil, nil, err
	}
	events, err := b.repos.Events.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	date, _ := info.PartyDate()
	updated, moved := CascadePartyDate(events, date, b.loc)

	docs := map[storage.Key]any{storage.KeyPartyInfo: info}
	if moved > 0 {
		docs[storage.KeyEvents] = updated
	}
	if err := b.repos.Store().WriteAll(ctx, docs); err != nil {
		if moved > 0 {
			return nil, nil, &domain.CascadeError{Updated: moved, Err: err}
		}
		return nil, nil, err
	}
	log.WithFields(log.Fields{"date": info.Date, "events_moved": moved}).Debug("party info saved")
	return &info, updated, nil
}

// AddEvent adds an event, first moving it onto the party date when it
// follows it.
func (b *Builder) AddEvent(ctx context.Context, draft domain.Event) ([]domain.Event, error) {
	if draft.UsePartyDate {
		info, err := b.repos.Party.Get(ctx)
		if err != nil {
			return nil, err
		}
		draft = AlignToPartyDate(draft, info, b.loc)
	}
	return b.repos.Events.Add(ctx, draft)
}

// UpdateEvent is AddEvent for edits.
func (b *Builder) UpdateEvent(ctx context.Context, id string, patch domain.Event) ([]domain.Event, error) {
	if patch.UsePartyDate {
		info, err := b.repos.Party.Get(ctx)
		if err != nil {
			return nil, err
		}
		patch = AlignToPartyDate(patch, info, b.loc)
	}
	return b.repos.Events.Update(ctx, id, patch)
}
