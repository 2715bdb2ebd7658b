package bootcampsrepo

import (
	"time"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/sdk/validation"
)

// Collection is where bootcamps are stored.
const Collection = "bootcamps"

// DefaultPhoto is the photo of a bootcamp nobody uploaded one for.
const DefaultPhoto = "no-photo.jpg"

// Careers are the accepted career tracks.
var Careers = []string{
	"Web Development",
	"Mobile Development",
	"UI/UX",
	"Data Science",
	"Business",
	"Other",
}

// Schema declares the bootcamps collection. Courses are eager-loadable.
var Schema = docstore.Schema{
	Collection: Collection,
	Fields: map[string]docstore.Kind{
		"name":                      docstore.KindString,
		"slug":                      docstore.KindString,
		"description":               docstore.KindString,
		"website":                   docstore.KindString,
		"phone":                     docstore.KindString,
		"email":                     docstore.KindString,
		"address":                   docstore.KindString,
		"location":                  docstore.KindPoint,
		"location.formattedAddress": docstore.KindString,
		"location.street":           docstore.KindString,
		"location.city":             docstore.KindString,
		"location.state":            docstore.KindString,
		"location.zipcode":          docstore.KindString,
		"location.country":          docstore.KindString,
		"careers":                   docstore.KindStrings,
		"averageRating":             docstore.KindNumber,
		"averageCost":               docstore.KindNumber,
		"photo":                     docstore.KindString,
		"housing":                   docstore.KindBool,
		"jobAssistance":             docstore.KindBool,
		"jobGuarantee":              docstore.KindBool,
		"acceptGi":                  docstore.KindBool,
		"createdAt":                 docstore.KindTime,
		"user":                      docstore.KindID,
	},
	Relations: map[string]docstore.Relation{
		"courses": {
			Name:         "courses",
			Collection:   "courses",
			LocalField:   docstore.KeyID,
			ForeignField: "bootcamp",
			Many:         true,
		},
	},
	Unique:   []string{"name"},
	GeoField: "location",
}

// Location is the geocoded address of a bootcamp, a GeoJSON point plus the
// address parts.
type Location struct {
	Type             string    `json:"type"`
	Coordinates      []float64 `json:"coordinates"`
	FormattedAddress string    `json:"formattedAddress,omitempty"`
	Street           string    `json:"street,omitempty"`
	City             string    `json:"city,omitempty"`
	State            string    `json:"state,omitempty"`
	Zipcode          string    `json:"zipcode,omitempty"`
	Country          string    `json:"country,omitempty"`
}

// Bootcamp is a listing owned by a publisher.
type Bootcamp struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Website       string    `json:"website,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	Location      *Location `json:"location,omitempty"`
	Careers       []string  `json:"careers"`
	AverageRating *float64  `json:"averageRating,omitempty"`
	AverageCost   *float64  `json:"averageCost,omitempty"`
	Photo         string    `json:"photo"`
	Housing       bool      `json:"housing"`
	JobAssistance bool      `json:"jobAssistance"`
	JobGuarantee  bool      `json:"jobGuarantee"`
	AcceptGi      bool      `json:"acceptGi"`
	CreatedAt     time.Time `json:"createdAt"`
	User          string    `json:"user"`
}

// CreateBootcamp is a new listing.
type CreateBootcamp struct {
	Name          string
	Description   string
	Website       string
	Phone         string
	Email         string
	Address       string
	Careers       []string
	Housing       bool
	JobAssistance bool
	JobGuarantee  bool
	AcceptGi      bool
}

// Validate checks the listing rules.
func (c CreateBootcamp) Validate() error {
	var v validation.Validator
	v.Required("name", c.Name, "Please add a name")
	v.MaxLen("name", c.Name, 50, "Name can not be more than 50 characters")
	v.Required("description", c.Description, "Please add a description")
	v.MaxLen("description", c.Description, 500, "Description can not be more than 500 characters")
	v.Match("website", c.Website, validation.URLPattern, "Please use a valid URL with HTTP or HTTPS")
	v.MaxLen("phone", c.Phone, 20, "Phone number can not be longer than 20 characters")
	v.Match("email", c.Email, validation.EmailPattern, "Please add a valid email")
	v.Required("address", c.Address, "Please add an address")
	v.Check(len(c.Careers) > 0, "careers", "Please add at least one career")
	checkCareers(&v, c.Careers)
	return v.Err()
}

// UpdateBootcamp holds optional changes; nil fields are left alone.
type UpdateBootcamp struct {
	Name          *string
	Description   *string
	Website       *string
	Phone         *string
	Email         *string
	Address       *string
	Careers       *[]string
	Housing       *bool
	JobAssistance *bool
	JobGuarantee  *bool
	AcceptGi      *bool
}

// Validate checks the fields that are set.
func (u UpdateBootcamp) Validate() error {
	var v validation.Validator
	if u.Name != nil {
		v.Required("name", *u.Name, "Please add a name")
		v.MaxLen("name", *u.Name, 50, "Name can not be more than 50 characters")
	}
	if u.Description != nil {
		v.Required("description", *u.Description, "Please add a description")
		v.MaxLen("description", *u.Description, 500, "Description can not be more than 500 characters")
	}
	if u.Website != nil {
		v.Match("website", *u.Website, validation.URLPattern, "Please use a valid URL with HTTP or HTTPS")
	}
	if u.Phone != nil {
		v.MaxLen("phone", *u.Phone, 20, "Phone number can not be longer than 20 characters")
	}
	if u.Email != nil {
		v.Match("email", *u.Email, validation.EmailPattern, "Please add a valid email")
	}
	if u.Address != nil {
		v.Required("address", *u.Address, "Please add an address")
	}
	if u.Careers != nil {
		v.Check(len(*u.Careers) > 0, "careers", "Please add at least one career")
		checkCareers(&v, *u.Careers)
	}
	return v.Err()
}

func (u UpdateBootcamp) patch() docstore.Document {
	p := docstore.Document{}
	set := func(key string, s *string) {
		if s != nil {
			p[key] = *s
		}
	}
	flag := func(key string, b *bool) {
		if b != nil {
			p[key] = *b
		}
	}
	set("name", u.Name)
	set("description", u.Description)
	set("website", u.Website)
	set("phone", u.Phone)
	set("email", u.Email)
	set("address", u.Address)
	if u.Careers != nil {
		p["careers"] = stringsToAny(*u.Careers)
	}
	flag("housing", u.Housing)
	flag("jobAssistance", u.JobAssistance)
	flag("jobGuarantee", u.JobGuarantee)
	flag("acceptGi", u.AcceptGi)
	return p
}

func checkCareers(v *validation.Validator, careers []string) {
	for _, c := range careers {
		if !validation.In(c, Careers) {
			v.Check(false, "careers", "`"+c+"` is not a valid career")
		}
	}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func locationDocument(l geocoder.Location) docstore.Document {
	doc := docstore.Point(l.Lng, l.Lat)
	doc["formattedAddress"] = l.FormattedAddress
	doc["street"] = l.Street
	doc["city"] = l.City
	doc["state"] = l.State
	doc["zipcode"] = l.Zipcode
	doc["country"] = l.Country
	return doc
}

func fromDocument(doc docstore.Document) Bootcamp {
	b := Bootcamp{
		ID:            doc.ID(),
		Name:          docstore.String(doc, "name"),
		Slug:          docstore.String(doc, "slug"),
		Description:   docstore.String(doc, "description"),
		Website:       docstore.String(doc, "website"),
		Phone:         docstore.String(doc, "phone"),
		Email:         docstore.String(doc, "email"),
		Address:       docstore.String(doc, "address"),
		Careers:       docstore.Strings(doc, "careers"),
		Photo:         docstore.String(doc, "photo"),
		Housing:       docstore.Bool(doc, "housing"),
		JobAssistance: docstore.Bool(doc, "jobAssistance"),
		JobGuarantee:  docstore.Bool(doc, "jobGuarantee"),
		AcceptGi:      docstore.Bool(doc, "acceptGi"),
		User:          docstore.String(doc, "user"),
	}
	if b.Careers == nil {
		b.Careers = []string{}
	}
	if f, ok := docstore.Float(doc, "averageRating"); ok {
		b.AverageRating = &f
	}
	if f, ok := docstore.Float(doc, "averageCost"); ok {
		b.AverageCost = &f
	}
	b.CreatedAt, _ = docstore.Time(doc, docstore.KeyCreatedAt)

	if loc, ok := docstore.Sub(doc, "location"); ok {
		if lng, lat, ok := docstore.PointCoordinates(loc); ok {
			b.Location = &Location{
				Type:             "Point",
				Coordinates:      []float64{lng, lat},
				FormattedAddress: docstore.String(loc, "formattedAddress"),
				Street:           docstore.String(loc, "street"),
				City:             docstore.String(loc, "city"),
				State:            docstore.String(loc, "state"),
				Zipcode:          docstore.String(loc, "zipcode"),
				Country:          docstore.String(loc, "country"),
			}
		}
	}
	return b
}
