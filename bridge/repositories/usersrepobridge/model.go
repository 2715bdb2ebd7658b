package usersrepobridge

import (
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/sdk/validation"
)

// RegisterInput is the body of POST /auth/register. Admin is not a role a
// caller can give themselves.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (in RegisterInput) Validate() error {
	var v validation.Validator
	v.OneOf("role", in.Role, usersrepo.SelfAssignableRoles, "Please choose a valid role")
	if err := v.Err(); err != nil {
		return err
	}
	return in.toRepository().Validate()
}

func (in RegisterInput) toRepository() usersrepo.CreateUser {
	role := in.Role
	if role == "" {
		role = usersrepo.RoleUser
	}
	return usersrepo.CreateUser{
		Name:     in.Name,
		Email:    in.Email,
		Role:     role,
		Password: in.Password,
	}
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	var v validation.Validator
	v.Check(in.Email != "" && in.Password != "", "email", "Please provide an email and password")
	return v.Err()
}

// UpdateDetailsInput is the body of PUT /auth/updatedetails.
type UpdateDetailsInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (in UpdateDetailsInput) Validate() error {
	return in.toRepository().Validate()
}

func (in UpdateDetailsInput) toRepository() usersrepo.UpdateUser {
	return usersrepo.UpdateUser{Name: in.Name, Email: in.Email}
}

// UpdatePasswordInput is the body of PUT /auth/updatepassword.
type UpdatePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (in UpdatePasswordInput) Validate() error {
	var v validation.Validator
	v.Required("currentPassword", in.CurrentPassword, "Please provide your current password")
	v.MinLen("newPassword", in.NewPassword, usersrepo.MinPasswordLength, "Password must be at least 6 characters")
	return v.Err()
}

// ForgotPasswordInput is the body of POST /auth/forgotpassword.
type ForgotPasswordInput struct {
	Email string `json:"email"`
}

func (in ForgotPasswordInput) Validate() error {
	var v validation.Validator
	v.Required("email", in.Email, "Please add an email")
	return v.Err()
}

// ResetPasswordInput is the body of PUT /auth/resetpassword/{resettoken}.
type ResetPasswordInput struct {
	Password string `json:"password"`
}

func (in ResetPasswordInput) Validate() error {
	var v validation.Validator
	v.MinLen("password", in.Password, usersrepo.MinPasswordLength, "Password must be at least 6 characters")
	return v.Err()
}

// CreateUserInput is the body of POST /users. Admins may hand out any role.
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (in CreateUserInput) Validate() error {
	return in.toRepository().Validate()
}

func (in CreateUserInput) toRepository() usersrepo.CreateUser {
	role := in.Role
	if role == "" {
		role = usersrepo.RoleUser
	}
	return usersrepo.CreateUser{
		Name:     in.Name,
		Email:    in.Email,
		Role:     role,
		Password: in.Password,
	}
}

// UpdateUserInput is the body of PUT /users/{id}.
type UpdateUserInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (in UpdateUserInput) Validate() error {
	return in.toRepository().Validate()
}

func (in UpdateUserInput) toRepository() usersrepo.UpdateUser {
	return usersrepo.UpdateUser{Name: in.Name, Email: in.Email, Role: in.Role}
}
