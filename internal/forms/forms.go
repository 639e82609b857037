package forms

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"taskcal/internal/models"
)

// TaskForm carries the raw task fields submitted by the client. Binding tags
// enforce the field constraints: title present, category and priority members
// of their enumerations, date and times in their wire formats. End time is
// not checked against start time.
type TaskForm struct {
	Title       string `form:"title" json:"title" binding:"required"`
	Description string `form:"description" json:"description"`
	Category    string `form:"category" json:"category" binding:"required,oneof=work personal study"`
	Priority    string `form:"priority" json:"priority" binding:"required,oneof=low medium high"`
	StartDate   string `form:"start_date" json:"start_date" binding:"required,datetime=2006-01-02"`
	StartTime   string `form:"start_time" json:"start_time" binding:"required,datetime=15:04"`
	EndTime     string `form:"end_time" json:"end_time" binding:"required,datetime=15:04"`
}

// Task converts a validated form into the storage entity.
func (f TaskForm) Task() models.Task {
	return models.Task{
		Title:       f.Title,
		Description: f.Description,
		Category:    f.Category,
		Priority:    f.Priority,
		StartDate:   f.StartDate,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
	}
}

var fieldNames = map[string]string{
	"Title":       "title",
	"Description": "description",
	"Category":    "category",
	"Priority":    "priority",
	"StartDate":   "start_date",
	"StartTime":   "start_time",
	"EndTime":     "end_time",
}

// FieldErrors flattens a binding error into a field name to message map
// suitable for the validation failure response. Non-validator errors map to
// a single "form" entry.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["form"] = "malformed form body"
		return out
	}

	for _, fe := range verrs {
		name, ok := fieldNames[fe.Field()]
		if !ok {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			out[name] = "is required"
		case "oneof":
			out[name] = "must be one of: " + fe.Param()
		case "datetime":
			out[name] = "must match format " + fe.Param()
		default:
			out[name] = "is invalid"
		}
	}
	return out
}
