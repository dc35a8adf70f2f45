package store

import (
	"context"
	"log/slog"
)

// NoticeKind tells a notice's audience whether the operation worked.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the user-facing message emitted after a store operation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Notice messages.
const (
	MsgCreated          = "Briefing created successfully!"
	MsgUpdated          = "Briefing updated successfully!"
	MsgDeleted          = "Briefing deleted successfully!"
	MsgResponseSent     = "Response submitted successfully!"
	MsgCreateFailed     = "Something went wrong while creating the briefing"
	MsgUpdateFailed     = "Something went wrong while updating the briefing"
	MsgDeleteFailed     = "Something went wrong while deleting the briefing"
	MsgSubmitFailed     = "Something went wrong while sending the briefing"
	MsgBriefingNotFound = "Briefing not found"
	MsgResponseNotFound = "Response not found"
)

// Notifier receives the notices a store emits.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to a logger, errors at warn level.
func LogNotifier(logger *slog.Logger) Notifier {
	return NotifierFunc(func(n Notice) {
		level := slog.LevelInfo
		if n.Kind == NoticeError {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, "notice", slog.String("kind", string(n.Kind)), slog.String("message", n.Message))
	})
}

// Recorder is a Notifier that keeps every notice, newest last.
type Recorder struct {
	Notices []Notice
}

func (r *Recorder) Notify(n Notice) { r.Notices = append(r.Notices, n) }

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	if len(r.Notices) == 0 {
		return Notice{}, false
	}
	return r.Notices[len(r.Notices)-1], true
}
