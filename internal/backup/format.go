// Package backup exports one training evaluation activity into a portable
// archive and restores such archives into a course with fresh ids.
package backup

import (
	"encoding/xml"
	"time"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
)

// FormatVersion is written into every manifest. Restore accepts versions up
// to and including it.
const FormatVersion = 1

const (
	manifestFile = "manifest.xml"
	activityFile = "activity.xml"
	inforefFile  = "inforef.xml"
	filesFile    = "files.xml"
	blobDir      = "files/"
)

type Settings struct {
	UserInfo bool `xml:"userinfo" json:"userinfo"`
}

type Manifest struct {
	XMLName       xml.Name `xml:"manifest"`
	BackupID      string   `xml:"backupid,attr"`
	FormatVersion int      `xml:"formatversion,attr"`
	Module        string   `xml:"module"`
	Created       int64    `xml:"created"`
	Settings      Settings `xml:"settings"`
	ActivityID    int64    `xml:"original>activityid"`
	CourseID      int64    `xml:"original>courseid"`
	ContextID     int64    `xml:"original>contextid"`
}

// ActivityDoc mirrors the /activity/trainingevaluation path layout.
type ActivityDoc struct {
	XMLName    xml.Name     `xml:"activity"`
	ID         int64        `xml:"id,attr"`
	ModuleName string       `xml:"modulename,attr"`
	ContextID  int64        `xml:"contextid,attr"`
	Activity   ActivityElem `xml:"trainingevaluation"`
}

type ActivityElem struct {
	ID                   int64            `xml:"id,attr"`
	Name                 string           `xml:"name"`
	Intro                string           `xml:"intro"`
	IntroFormat          int              `xml:"introformat"`
	ShowLastModified     bool             `xml:"showlastmodified"`
	CompletionOnRequired bool             `xml:"completiononrequired"`
	TimeModified         int64            `xml:"timemodified"`
	Sections             []SectionElem    `xml:"sections>section"`
	Evaluations          []EvaluationElem `xml:"evaluations>evaluation"`
}

type SectionElem struct {
	ID            int64      `xml:"id,attr"`
	Name          string     `xml:"name"`
	ParentSection *int64     `xml:"parentsection"`
	Position      int        `xml:"position"`
	UserModified  int64      `xml:"usermodified"`
	TimeCreated   int64      `xml:"timecreated"`
	TimeModified  int64      `xml:"timemodified"`
	Items         []ItemElem `xml:"section_items>section_item"`
}

type ItemElem struct {
	ID           int64          `xml:"id,attr"`
	Name         string         `xml:"name"`
	Description  string         `xml:"description"`
	Type         string         `xml:"type"`
	Position     int            `xml:"position"`
	IsRequired   bool           `xml:"isrequired"`
	UserModified int64          `xml:"usermodified"`
	TimeCreated  int64          `xml:"timecreated"`
	TimeModified int64          `xml:"timemodified"`
	Configs      []ConfigElem   `xml:"item_configs>config"`
	Responses    []ResponseElem `xml:"responses>response"`
}

type ConfigElem struct {
	ID    int64  `xml:"id,attr"`
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

type ResponseElem struct {
	ID           int64  `xml:"id,attr"`
	UserID       int64  `xml:"userid"`
	Response     string `xml:"response"`
	Completed    bool   `xml:"completed"`
	Version      int    `xml:"version"`
	UserModified int64  `xml:"usermodified"`
	TimeCreated  int64  `xml:"timecreated"`
	TimeModified int64  `xml:"timemodified"`
}

type EvaluationElem struct {
	ID            int64  `xml:"id,attr"`
	UserID        int64  `xml:"userid"`
	Finalised     bool   `xml:"finalised"`
	FinalisedBy   *int64 `xml:"finalisedby"`
	TimeFinalised *int64 `xml:"timefinalised"`
	UserModified  int64  `xml:"usermodified"`
	TimeCreated   int64  `xml:"timecreated"`
	TimeModified  int64  `xml:"timemodified"`
	Version       int    `xml:"version"`
	Active        bool   `xml:"active"`
}

// InfoRef lists every user id annotated anywhere in the tree.
type InfoRef struct {
	XMLName xml.Name  `xml:"inforef"`
	Users   []UserRef `xml:"userref>user"`
}

type UserRef struct {
	ID int64 `xml:"id"`
}

type FilesDoc struct {
	XMLName xml.Name   `xml:"files"`
	Files   []FileElem `xml:"file"`
}

type FileElem struct {
	ID           int64  `xml:"id,attr"`
	ContentHash  string `xml:"contenthash"`
	ContextID    int64  `xml:"contextid"`
	Component    string `xml:"component"`
	FileArea     string `xml:"filearea"`
	ItemID       int64  `xml:"itemid"`
	FilePath     string `xml:"filepath"`
	FileName     string `xml:"filename"`
	UserID       *int64 `xml:"userid"`
	FileSize     int64  `xml:"filesize"`
	MimeType     string `xml:"mimetype"`
	TimeCreated  int64  `xml:"timecreated"`
	TimeModified int64  `xml:"timemodified"`
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(v, 0).UTC()
}

func sectionElem(s *types.Section) SectionElem {
	return SectionElem{
		ID:            s.ID,
		Name:          s.Name,
		ParentSection: s.ParentSection,
		Position:      s.Position,
		UserModified:  s.UserModified,
		TimeCreated:   unix(s.TimeCreated),
		TimeModified:  unix(s.TimeModified),
	}
}

func itemElem(it *types.SectionItem) ItemElem {
	return ItemElem{
		ID:           it.ID,
		Name:         it.Name,
		Description:  it.Description,
		Type:         string(it.Type),
		Position:     it.Position,
		IsRequired:   it.IsRequired,
		UserModified: it.UserModified,
		TimeCreated:  unix(it.TimeCreated),
		TimeModified: unix(it.TimeModified),
	}
}

func responseElem(r *types.Response) ResponseElem {
	return ResponseElem{
		ID:           r.ID,
		UserID:       r.UserID,
		Response:     r.Response,
		Completed:    r.Completed,
		Version:      r.Version,
		UserModified: r.UserModified,
		TimeCreated:  unix(r.TimeCreated),
		TimeModified: unix(r.TimeModified),
	}
}

func evaluationElem(e *types.Evaluation) EvaluationElem {
	out := EvaluationElem{
		ID:           e.ID,
		UserID:       e.UserID,
		Finalised:    e.Finalised,
		FinalisedBy:  e.FinalisedBy,
		UserModified: e.UserModified,
		TimeCreated:  unix(e.TimeCreated),
		TimeModified: unix(e.TimeModified),
		Version:      e.Version,
		Active:       e.Active,
	}
	if e.TimeFinalised != nil {
		v := e.TimeFinalised.Unix()
		out.TimeFinalised = &v
	}
	return out
}

func fileElem(f *types.StoredFile) FileElem {
	return FileElem{
		ID:           f.ID,
		ContentHash:  f.ContentHash,
		ContextID:    f.ContextID,
		Component:    f.Component,
		FileArea:     f.FileArea,
		ItemID:       f.ItemID,
		FilePath:     f.FilePath,
		FileName:     f.FileName,
		UserID:       f.UserID,
		FileSize:     f.FileSize,
		MimeType:     f.MimeType,
		TimeCreated:  unix(f.TimeCreated),
		TimeModified: unix(f.TimeModified),
	}
}

func validItemType(t string) bool { return training.ItemType(t).Valid() }
