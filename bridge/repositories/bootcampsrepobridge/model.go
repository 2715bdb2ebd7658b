package bootcampsrepobridge

import (
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
)

// CreateBootcampInput is the body of POST /bootcamps.
type CreateBootcampInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Website       string   `json:"website"`
	Phone         string   `json:"phone"`
	Email         string   `json:"email"`
	Address       string   `json:"address"`
	Careers       []string `json:"careers"`
	Housing       bool     `json:"housing"`
	JobAssistance bool     `json:"jobAssistance"`
	JobGuarantee  bool     `json:"jobGuarantee"`
	AcceptGi      bool     `json:"acceptGi"`
}

func (in CreateBootcampInput) Validate() error {
	return in.toRepository().Validate()
}

func (in CreateBootcampInput) toRepository() bootcampsrepo.CreateBootcamp {
	return bootcampsrepo.CreateBootcamp{
		Name:          in.Name,
		Description:   in.Description,
		Website:       in.Website,
		Phone:         in.Phone,
		Email:         in.Email,
		Address:       in.Address,
		Careers:       in.Careers,
		Housing:       in.Housing,
		JobAssistance: in.JobAssistance,
		JobGuarantee:  in.JobGuarantee,
		AcceptGi:      in.AcceptGi,
	}
}

// UpdateBootcampInput is the body of PUT /bootcamps/{bid}. Absent fields
// stay as they are.
type UpdateBootcampInput struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Website       *string   `json:"website"`
	Phone         *string   `json:"phone"`
	Email         *string   `json:"email"`
	Address       *string   `json:"address"`
	Careers       *[]string `json:"careers"`
	Housing       *bool     `json:"housing"`
	JobAssistance *bool     `json:"jobAssistance"`
	JobGuarantee  *bool     `json:"jobGuarantee"`
	AcceptGi      *bool     `json:"acceptGi"`
}

func (in UpdateBootcampInput) Validate() error {
	return in.toRepository().Validate()
}

func (in UpdateBootcampInput) toRepository() bootcampsrepo.UpdateBootcamp {
	return bootcampsrepo.UpdateBootcamp{
		Name:          in.Name,
		Description:   in.Description,
		Website:       in.Website,
		Phone:         in.Phone,
		Email:         in.Email,
		Address:       in.Address,
		Careers:       in.Careers,
		Housing:       in.Housing,
		JobAssistance: in.JobAssistance,
		JobGuarantee:  in.JobGuarantee,
		AcceptGi:      in.AcceptGi,
	}
}
