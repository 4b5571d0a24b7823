// Package events carries the domain events the activity raises (page views,
// saved responses, evaluation lifecycle, backup and restore completion).
package events

import (
	"context"
	"sync"
	"time"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

const (
	CourseModuleViewed             = "course_module_viewed"
	CourseModuleInstanceListViewed = "course_module_instance_list_viewed"
	ResponseSaved                  = "response_saved"
	EvaluationCreated              = "evaluation_created"
	EvaluationFinalised            = "evaluation_finalised"
	BackupCompleted                = "backup_completed"
	RestoreCompleted               = "restore_completed"
)

type Event struct {
	Name          string                 `json:"name"`
	Component     string                 `json:"component"`
	CourseID      int64                  `json:"courseid,omitempty"`
	ActivityID    int64                  `json:"activityid,omitempty"`
	ObjectID      int64                  `json:"objectid,omitempty"`
	UserID        int64                  `json:"userid"`
	RelatedUserID int64                  `json:"relateduserid,omitempty"`
	Other         map[string]interface{} `json:"other,omitempty"`
	Time          time.Time              `json:"time"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type logPublisher struct {
	log *logger.Logger
}

// NewLogPublisher writes events to the structured log. Used when no broker
// is configured.
func NewLogPublisher(baseLog *logger.Logger) Publisher {
	return &logPublisher{log: baseLog.With("service", "EventLog")}
}

func (p *logPublisher) Publish(ctx context.Context, ev Event) error {
	p.log.Info("event",
		"name", ev.Name,
		"course_id", ev.CourseID,
		"activity_id", ev.ActivityID,
		"object_id", ev.ObjectID,
		"userid", ev.UserID,
		"related_userid", ev.RelatedUserID,
	)
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in publish order.
func (r *Recorder) Names() []string {
	evs := r.Events()
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Name)
	}
	return out
}

// Emit stamps and publishes ev. Publish failures are logged and never fail
// the operation that raised the event.
func Emit(ctx context.Context, pub Publisher, log *logger.Logger, ev Event) {
	if pub == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	if ev.Component == "" {
		ev.Component = "mod_trainingevaluation"
	}
	if err := pub.Publish(ctx, ev); err != nil && log != nil {
		log.Warn("event publish failed", "name", ev.Name, "error", err)
	}
}
