package services

import (
	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/events"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type Services struct {
	Activities  ActivityService
	Sections    SectionService
	Items       ItemService
	Responses   ResponseService
	Evaluations EvaluationService
	Completion  CompletionService
	View        ViewService
}

func New(db *gorm.DB, baseLog *logger.Logger, set *repos.Set, files filestore.Store, pub events.Publisher) *Services {
	completion := NewCompletionService(baseLog, set.Activities, set.Items, set.Responses, set.Evaluations)
	return &Services{
		Activities: NewActivityService(db, baseLog, set.Activities, set.Sections, set.Items, set.ItemConfigs,
			set.Responses, set.Evaluations, files),
		Sections: NewSectionService(db, baseLog, set.Activities, set.Sections, set.Items, set.ItemConfigs,
			set.Responses, files),
		Items: NewItemService(db, baseLog, set.Sections, set.Items, set.ItemConfigs, set.Responses, files),
		Responses: NewResponseService(db, baseLog, set.Activities, set.Sections, set.Items, set.ItemConfigs,
			set.Responses, set.Evaluations, files, pub),
		Evaluations: NewEvaluationService(db, baseLog, set.Activities, set.Evaluations, set.Responses, pub),
		Completion:  completion,
		View:        NewViewService(db, baseLog, set, files, completion, pub),
	}
}
