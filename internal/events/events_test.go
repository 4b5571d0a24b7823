package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("down") }

func TestEmitStampsAndRecords(t *testing.T) {
	rec := &Recorder{}
	Emit(context.Background(), rec, logger.Nop(), Event{Name: CourseModuleViewed, ActivityID: 3, UserID: 5})

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, "mod_trainingevaluation", evs[0].Component)
	assert.False(t, evs[0].Time.IsZero())
	assert.Equal(t, []string{CourseModuleViewed}, rec.Names())
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(context.Background(), failingPublisher{}, logger.Nop(), Event{Name: ResponseSaved})
		Emit(context.Background(), nil, nil, Event{Name: ResponseSaved})
	})
	require.NoError(t, NewLogPublisher(logger.Nop()).Publish(context.Background(), Event{Name: BackupCompleted}))
}
