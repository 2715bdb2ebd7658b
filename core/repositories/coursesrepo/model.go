package coursesrepo

import (
	"time"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/sdk/validation"
)

// Collection is where courses are stored.
const Collection = "courses"

// Skills are the accepted minimum skill levels.
var Skills = []string{"beginner", "intermediate", "advanced"}

// Schema declares the courses collection. The owning bootcamp is
// eager-loadable.
var Schema = docstore.Schema{
	Collection: Collection,
	Fields: map[string]docstore.Kind{
		"title":                docstore.KindString,
		"description":          docstore.KindString,
		"weeks":                docstore.KindString,
		"tuition":              docstore.KindNumber,
		"minimumSkill":         docstore.KindString,
		"scholarshipAvailable": docstore.KindBool,
		"createdAt":            docstore.KindTime,
		"bootcamp":             docstore.KindID,
		"user":                 docstore.KindID,
	},
	Relations: map[string]docstore.Relation{
		"bootcamp": {
			Name:         "bootcamp",
			Collection:   "bootcamps",
			LocalField:   "bootcamp",
			ForeignField: docstore.KeyID,
		},
	},
}

// Course belongs to one bootcamp.
type Course struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Weeks                string    `json:"weeks"`
	Tuition              float64   `json:"tuition"`
	MinimumSkill         string    `json:"minimumSkill"`
	ScholarshipAvailable bool      `json:"scholarshipAvailable"`
	CreatedAt            time.Time `json:"createdAt"`
	Bootcamp             string    `json:"bootcamp"`
	User                 string    `json:"user"`
}

// BootcampSummary is the part of the owning bootcamp shown with a course.
type BootcampSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Detail is a course with its bootcamp loaded.
type Detail struct {
	Course
	Bootcamp *BootcampSummary `json:"bootcamp"`
}

// CreateCourse is a new course.
type CreateCourse struct {
	Title                string
	Description          string
	Weeks                string
	Tuition              *float64
	MinimumSkill         string
	ScholarshipAvailable bool
}

// Validate checks the course rules.
func (c CreateCourse) Validate() error {
	var v validation.Validator
	v.Required("title", c.Title, "Please add a course title")
	v.Required("description", c.Description, "Please add a description")
	v.Required("weeks", c.Weeks, "Please add number of weeks")
	v.Check(c.Tuition != nil, "tuition", "Please add a tuition cost")
	if c.Tuition != nil {
		v.Check(*c.Tuition >= 0, "tuition", "Tuition can not be negative")
	}
	v.Required("minimumSkill", c.MinimumSkill, "Please add a minimum skill")
	v.OneOf("minimumSkill", c.MinimumSkill, Skills, "Please choose beginner, intermediate or advanced")
	return v.Err()
}

// UpdateCourse holds optional changes; nil fields are left alone.
type UpdateCourse struct {
	Title                *string
	Description          *string
	Weeks                *string
	Tuition              *float64
	MinimumSkill         *string
	ScholarshipAvailable *bool
}

// Validate checks the fields that are set.
func (u UpdateCourse) Validate() error {
	var v validation.Validator
	if u.Title != nil {
		v.Required("title", *u.Title, "Please add a course title")
	}
	if u.Description != nil {
		v.Required("description", *u.Description, "Please add a description")
	}
	if u.Weeks != nil {
		v.Required("weeks", *u.Weeks, "Please add number of weeks")
	}
	if u.Tuition != nil {
		v.Check(*u.Tuition >= 0, "tuition", "Tuition can not be negative")
	}
	if u.MinimumSkill != nil {
		v.Check(validation.In(*u.MinimumSkill, Skills), "minimumSkill", "Please choose beginner, intermediate or advanced")
	}
	return v.Err()
}

func (u UpdateCourse) patch() docstore.Document {
	p := docstore.Document{}
	if u.Title != nil {
		p["title"] = *u.Title
	}
	if u.Description != nil {
		p["description"] = *u.Description
	}
	if u.Weeks != nil {
		p["weeks"] = *u.Weeks
	}
	if u.Tuition != nil {
		p["tuition"] = *u.Tuition
	}
	if u.MinimumSkill != nil {
		p["minimumSkill"] = *u.MinimumSkill
	}
	if u.ScholarshipAvailable != nil {
		p["scholarshipAvailable"] = *u.ScholarshipAvailable
	}
	return p
}

func fromDocument(doc docstore.Document) Course {
	c := Course{
		ID:                   doc.ID(),
		Title:                docstore.String(doc, "title"),
		Description:          docstore.String(doc, "description"),
		Weeks:                docstore.String(doc, "weeks"),
		MinimumSkill:         docstore.String(doc, "minimumSkill"),
		ScholarshipAvailable: docstore.Bool(doc, "scholarshipAvailable"),
		Bootcamp:             docstore.String(doc, "bootcamp"),
		User:                 docstore.String(doc, "user"),
	}
	c.Tuition, _ = docstore.Float(doc, "tuition")
	c.CreatedAt, _ = docstore.Time(doc, docstore.KeyCreatedAt)
	return c
}
