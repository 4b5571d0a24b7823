package filestore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
)

// IntroArea holds files embedded in the activity intro. Its item id is 0.
const IntroArea = "intro"

const fileUploadAreaPrefix = "type_fileupload_"

// AreaKey addresses the files one user uploaded for one fileupload item in
// one evaluation version.
type AreaKey struct {
	ItemID  int64
	Version int
	UserID  int64
}

// FileUploadArea is the area name for a fileupload item at a version.
func FileUploadArea(itemID int64, version int) string {
	return fmt.Sprintf("%s%d_%d", fileUploadAreaPrefix, itemID, version)
}

// ParseFileUploadArea is the inverse of FileUploadArea.
func ParseFileUploadArea(area string) (itemID int64, version int, ok bool) {
	rest, found := strings.CutPrefix(area, fileUploadAreaPrefix)
	if !found {
		return 0, 0, false
	}
	idPart, verPart, found := strings.Cut(rest, "_")
	if !found {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, false
	}
	v, err := strconv.Atoi(verPart)
	if err != nil || v <= 0 {
		return 0, 0, false
	}
	return id, v, true
}

func (k AreaKey) Area() string { return FileUploadArea(k.ItemID, k.Version) }

// Filter resolves the key to the stored-file selector of the activity's
// context. The stored-file item id carries the learner's user id.
func (k AreaKey) Filter(activityID int64) repos.AreaFilter {
	userID := k.UserID
	return repos.AreaFilter{
		ContextID: activityID,
		Component: training.Component,
		FileArea:  k.Area(),
		ItemID:    &userID,
	}
}

// AllUsers selects every user's files of the area.
func (k AreaKey) AllUsers(activityID int64) repos.AreaFilter {
	f := k.Filter(activityID)
	f.ItemID = nil
	return f
}

func IntroFilter(activityID int64) repos.AreaFilter {
	zero := int64(0)
	return repos.AreaFilter{
		ContextID: activityID,
		Component: training.Component,
		FileArea:  IntroArea,
		ItemID:    &zero,
	}
}
