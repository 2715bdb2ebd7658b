package usersrepo

import (
	"time"

	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/sdk/validation"
)

// Collection is where users are stored.
const Collection = "users"

const (
	RoleUser      = "user"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
)

// SelfAssignableRoles are the roles a user may pick when registering.
var SelfAssignableRoles = []string{RoleUser, RolePublisher}

// Roles are every known role.
var Roles = []string{RoleUser, RolePublisher, RoleAdmin}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 10 * time.Minute

// Schema declares the users collection.
var Schema = docstore.Schema{
	Collection: Collection,
	Fields: map[string]docstore.Kind{
		"name":                docstore.KindString,
		"email":               docstore.KindString,
		"role":                docstore.KindString,
		"password":            docstore.KindString,
		"resetPasswordToken":  docstore.KindString,
		"resetPasswordExpire": docstore.KindTime,
		"createdAt":           docstore.KindTime,
	},
	Unique: []string{"email"},
	Hidden: []string{"password", "resetPasswordToken", "resetPasswordExpire"},
}

// User is an account. Secrets never leave the repository in JSON.
type User struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	PasswordHash        string     `json:"-"`
	ResetPasswordToken  string     `json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CreateUser is a new account. Password is plain text and hashed on insert.
type CreateUser struct {
	Name     string
	Email    string
	Role     string
	Password string
}

// Validate checks the fields every new account needs.
func (c CreateUser) Validate() error {
	var v validation.Validator
	v.Required("name", c.Name, "Please add a name")
	v.Required("email", c.Email, "Please add an email")
	v.Match("email", c.Email, validation.EmailPattern, "Please add a valid email")
	v.OneOf("role", c.Role, Roles, "Please choose a valid role")
	v.Check(len(c.Password) >= MinPasswordLength, "password", "Password must be at least 6 characters")
	return v.Err()
}

// UpdateUser holds optional changes; nil fields are left alone.
type UpdateUser struct {
	Name  *string
	Email *string
	Role  *string
}

// Validate checks the fields that are set.
func (u UpdateUser) Validate() error {
	var v validation.Validator
	if u.Name != nil {
		v.Required("name", *u.Name, "Please add a name")
	}
	if u.Email != nil {
		v.Required("email", *u.Email, "Please add an email")
		v.Match("email", *u.Email, validation.EmailPattern, "Please add a valid email")
	}
	if u.Role != nil {
		v.Check(validation.In(*u.Role, Roles), "role", "Please choose a valid role")
	}
	return v.Err()
}

func (u UpdateUser) patch() docstore.Document {
	p := docstore.Document{}
	if u.Name != nil {
		p["name"] = *u.Name
	}
	if u.Email != nil {
		p["email"] = *u.Email
	}
	if u.Role != nil {
		p["role"] = *u.Role
	}
	return p
}

func fromDocument(doc docstore.Document) User {
	u := User{
		ID:                 doc.ID(),
		Name:               docstore.String(doc, "name"),
		Email:              docstore.String(doc, "email"),
		Role:               docstore.String(doc, "role"),
		PasswordHash:       docstore.String(doc, "password"),
		ResetPasswordToken: docstore.String(doc, "resetPasswordToken"),
	}
	if t, ok := docstore.Time(doc, "resetPasswordExpire"); ok {
		u.ResetPasswordExpire = &t
	}
	u.CreatedAt, _ = docstore.Time(doc, docstore.KeyCreatedAt)
	return u
}
