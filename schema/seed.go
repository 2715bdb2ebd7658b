package schema

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/jrazmi/devcamper/core/events"
	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
	"github.com/jrazmi/devcamper/core/repositories/coursesrepo"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/geocoder"
	"github.com/jrazmi/devcamper/sdk/logger"
)

//go:embed seeds/*.json
var seedsFS embed.FS

// Repositories are the writers seed data goes through, so passwords are
// hashed and addresses geocoded as for any other write.
type Repositories struct {
	Users     *usersrepo.Repository
	Bootcamps *bootcampsrepo.Repository
	Courses   *coursesrepo.Repository
}

// NewRepositories builds every repository over db.
func NewRepositories(log *logger.Logger, db docstore.Database, publisher events.Publisher, geo geocoder.Geocoder) (Repositories, error) {
	users, err := usersrepo.NewRepository(log, db, publisher)
	if err != nil {
		return Repositories{}, err
	}
	bootcamps, err := bootcampsrepo.NewRepository(log, db, publisher, geo)
	if err != nil {
		return Repositories{}, err
	}
	courses, err := coursesrepo.NewRepository(log, db, publisher, bootcamps)
	if err != nil {
		return Repositories{}, err
	}
	return Repositories{Users: users, Bootcamps: bootcamps, Courses: courses}, nil
}

// Counts reports how many documents Seed created.
type Counts struct {
	Users     int
	Bootcamps int
	Courses   int
}

type seedUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// seedBootcamp names its owner by email.
type seedBootcamp struct {
	User          string   `json:"user"`
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

// seedCourse names its bootcamp by name.
type seedCourse struct {
	Bootcamp             string  `json:"bootcamp"`
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	Weeks                string  `json:"weeks"`
	Tuition              float64 `json:"tuition"`
	MinimumSkill         string  `json:"minimumSkill"`
	ScholarshipAvailable bool    `json:"scholarshipAvailable"`
}

func loadSeed[T any](name string) ([]T, error) {
	data, err := seedsFS.ReadFile("seeds/" + name)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", name, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", name, err)
	}
	return out, nil
}

// Seed creates the fixture users, bootcamps and courses. Course events are
// published as usual; averages appear once they are handled.
func Seed(ctx context.Context, repos Repositories) (Counts, error) {
	var counts Counts

	users, err := loadSeed[seedUser]("users.json")
	if err != nil {
		return counts, err
	}
	owners := make(map[string]string, len(users))
	for _, u := range users {
		user, err := repos.Users.Create(ctx, usersrepo.CreateUser{
			Name:     u.Name,
			Email:    u.Email,
			Role:     u.Role,
			Password: u.Password,
		})
		if err != nil {
			return counts, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		owners[user.Email] = user.ID
		counts.Users++
	}

	bootcamps, err := loadSeed[seedBootcamp]("bootcamps.json")
	if err != nil {
		return counts, err
	}
	camps := make(map[string]bootcampsrepo.Bootcamp, len(bootcamps))
	for _, b := range bootcamps {
		owner, ok := owners[b.User]
		if !ok {
			return counts, fmt.Errorf("seed bootcamp %s: unknown user %s", b.Name, b.User)
		}
		camp, err := repos.Bootcamps.Create(ctx, repositories.Actor{ID: owner}, bootcampsrepo.CreateBootcamp{
			Name:          b.Name,
			Description:   b.Description,
			Website:       b.Website,
			Phone:         b.Phone,
			Email:         b.Email,
			Address:       b.Address,
			Careers:       b.Careers,
			Housing:       b.Housing,
			JobAssistance: b.JobAssistance,
			JobGuarantee:  b.JobGuarantee,
			AcceptGi:      b.AcceptGi,
		})
		if err != nil {
			return counts, fmt.Errorf("seed bootcamp %s: %w", b.Name, err)
		}
		camps[camp.Name] = camp
		counts.Bootcamps++
	}

	courses, err := loadSeed[seedCourse]("courses.json")
	if err != nil {
		return counts, err
	}
	for _, c := range courses {
		camp, ok := camps[c.Bootcamp]
		if !ok {
			return counts, fmt.Errorf("seed course %s: unknown bootcamp %s", c.Title, c.Bootcamp)
		}
		tuition := c.Tuition
		_, err := repos.Courses.Create(ctx, repositories.Actor{ID: camp.User}, camp.ID, coursesrepo.CreateCourse{
			Title:                c.Title,
			Description:          c.Description,
			Weeks:                c.Weeks,
			Tuition:              &tuition,
			MinimumSkill:         c.MinimumSkill,
			ScholarshipAvailable: c.ScholarshipAvailable,
		})
		if err != nil {
			return counts, fmt.Errorf("seed course %s: %w", c.Title, err)
		}
		counts.Courses++
	}

	return counts, nil
}
