package services

import (
	"context"

	"github.com/resumehub/apiserver/types"
)

// ImproveMarker is appended to a resume context on every improve call.
const ImproveMarker = " [Improved]"

// ResumeRepository defines owner-scoped persistence operations for resumes.
type ResumeRepository interface {
	Create(ctx context.Context, resume types.Resume) (types.Resume, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.Resume, error)
	Get(ctx context.Context, id, ownerID int) (types.Resume, error)
	// Update, Delete and Improve also return the row as it was just before
	// the write, read in the same transaction.
	Update(ctx context.Context, resume types.Resume) (types.Resume, types.Resume, error)
	Delete(ctx context.Context, id, ownerID int) (types.Resume, error)
	Improve(ctx context.Context, id, ownerID int, suffix string) (types.Resume, types.Resume, error)
}

// ResumeService encapsulates resume use-cases. Every method takes the
// caller's user id; none accepts an owner from client input.
type ResumeService struct {
	repo    ResumeRepository
	events  EventPublisher
	archive RevisionArchive
	channel string
}

// NewResumeService constructs the service. events and archive are optional.
func NewResumeService(repo ResumeRepository, events EventPublisher, archive RevisionArchive) *ResumeService {
	return &ResumeService{
		repo:    repo,
		events:  events,
		archive: archive,
		channel: DefaultEventsChannel,
	}
}

// WithChannel overrides the channel lifecycle events are published on.
func (s *ResumeService) WithChannel(channel string) *ResumeService {
	if channel != "" {
		s.channel = channel
	}
	return s
}

func (s *ResumeService) Create(ctx context.Context, ownerID int, title, body string) (types.Resume, error) {
	created, err := s.repo.Create(ctx, types.Resume{
		Title:   title,
		Context: body,
		UserID:  ownerID,
	})
	if err != nil {
		return types.Resume{}, err
	}
	s.publish(ctx, types.ResumeCreated, created)
	return created, nil
}

func (s *ResumeService) List(ctx context.Context, ownerID int) ([]types.Resume, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *ResumeService) Get(ctx context.Context, id, ownerID int) (types.Resume, error) {
	return s.repo.Get(ctx, id, ownerID)
}

func (s *ResumeService) Update(ctx context.Context, id, ownerID int, title, body string) (types.Resume, error) {
	previous, updated, err := s.repo.Update(ctx, types.Resume{
		ID:      id,
		Title:   title,
		Context: body,
		UserID:  ownerID,
	})
	if err != nil {
		return types.Resume{}, err
	}
	s.archiveRevision(ctx, previous, types.ResumeUpdated)
	s.publish(ctx, types.ResumeUpdated, updated)
	return updated, nil
}

func (s *ResumeService) Delete(ctx context.Context, id, ownerID int) error {
	deleted, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		return err
	}
	s.archiveRevision(ctx, deleted, types.ResumeDeleted)
	s.publish(ctx, types.ResumeDeleted, deleted)
	return nil
}

// Improve appends ImproveMarker to the resume context. It does not
// deduplicate: two calls append the marker twice.
func (s *ResumeService) Improve(ctx context.Context, id, ownerID int) (types.Resume, error) {
	previous, improved, err := s.repo.Improve(ctx, id, ownerID, ImproveMarker)
	if err != nil {
		return types.Resume{}, err
	}
	s.archiveRevision(ctx, previous, types.ResumeImproved)
	s.publish(ctx, types.ResumeImproved, improved)
	return improved, nil
}
