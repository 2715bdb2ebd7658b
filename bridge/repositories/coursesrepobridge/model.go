package coursesrepobridge

import (
	"encoding/json"

	"github.com/jrazmi/devcamper/core/repositories/coursesrepo"
)

// CreateCourseInput is the body of POST /bootcamps/{bootcampId}/courses.
// Weeks is accepted as a number or a numeric string.
type CreateCourseInput struct {
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	Weeks                json.Number `json:"weeks"`
	Tuition              *float64    `json:"tuition"`
	MinimumSkill         string      `json:"minimumSkill"`
	ScholarshipAvailable bool        `json:"scholarshipAvailable"`
}

func (in CreateCourseInput) Validate() error {
	return in.toRepository().Validate()
}

func (in CreateCourseInput) toRepository() coursesrepo.CreateCourse {
	return coursesrepo.CreateCourse{
		Title:                in.Title,
		Description:          in.Description,
		Weeks:                in.Weeks.String(),
		Tuition:              in.Tuition,
		MinimumSkill:         in.MinimumSkill,
		ScholarshipAvailable: in.ScholarshipAvailable,
	}
}

// UpdateCourseInput is the body of PUT /courses/{id}.
type UpdateCourseInput struct {
	Title                *string      `json:"title"`
	Description          *string      `json:"description"`
	Weeks                *json.Number `json:"weeks"`
	Tuition              *float64     `json:"tuition"`
	MinimumSkill         *string      `json:"minimumSkill"`
	ScholarshipAvailable *bool        `json:"scholarshipAvailable"`
}

func (in UpdateCourseInput) Validate() error {
	return in.toRepository().Validate()
}

func (in UpdateCourseInput) toRepository() coursesrepo.UpdateCourse {
	out := coursesrepo.UpdateCourse{
		Title:                in.Title,
		Description:          in.Description,
		Tuition:              in.Tuition,
		MinimumSkill:         in.MinimumSkill,
		ScholarshipAvailable: in.ScholarshipAvailable,
	}
	if in.Weeks != nil {
		weeks := in.Weeks.String()
		out.Weeks = &weeks
	}
	return out
}
