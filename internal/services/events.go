package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/resumehub/apiserver/internal/logging"
	"github.com/resumehub/apiserver/types"
)

// DefaultEventsChannel is the channel resume lifecycle events go to unless
// overridden with WithChannel.
const DefaultEventsChannel = "resume-events"

// EventPublisher sends a message to a named channel. It matches mq.MQ.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// RevisionArchive stores opaque objects. It matches storage.Storage.
type RevisionArchive interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

var now = time.Now

// RevisionKey returns the object key a revision archived at t is stored under.
func RevisionKey(userID, resumeID int, t time.Time) string {
	return fmt.Sprintf("resumes/%d/%d/%d.json", userID, resumeID, t.UnixNano())
}

// publish emits a lifecycle event. Failures are logged and never surface to
// the caller: the database write has already committed.
func (s *ResumeService) publish(ctx context.Context, eventType types.ResumeEventType, resume types.Resume) {
	if s.events == nil {
		return
	}

	event := types.ResumeEvent{
		ID:       uuid.NewString(),
		Type:     eventType,
		ResumeID: resume.ID,
		UserID:   resume.UserID,
		At:       now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		logging.FromContext(ctx).Error("marshal resume event", slog.Any("error", err))
		return
	}

	attrs := map[string]string{
		"type":      string(eventType),
		"resume_id": strconv.Itoa(resume.ID),
		"user_id":   strconv.Itoa(resume.UserID),
	}
	if _, err := s.events.Publish(ctx, s.channel, data, attrs); err != nil {
		logging.FromContext(ctx).Warn("publish resume event",
			slog.String("type", string(eventType)),
			slog.Int("resume_id", resume.ID),
			slog.Any("error", err),
		)
	}
}

// archiveRevision stores the version of a resume that a write replaced. Like
// publish it is best-effort.
func (s *ResumeService) archiveRevision(ctx context.Context, previous types.Resume, reason types.ResumeEventType) {
	if s.archive == nil {
		return
	}

	at := now().UTC()
	data, err := json.Marshal(types.ResumeRevision{
		ResumeID:   previous.ID,
		UserID:     previous.UserID,
		Title:      previous.Title,
		Context:    previous.Context,
		Reason:     reason,
		ArchivedAt: at,
	})
	if err != nil {
		logging.FromContext(ctx).Error("marshal resume revision", slog.Any("error", err))
		return
	}

	key := RevisionKey(previous.UserID, previous.ID, at)
	if err := s.archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		logging.FromContext(ctx).Warn("archive resume revision",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}
