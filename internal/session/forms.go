package session

import (
	"strings"

	"github.com/vozcidada/gateway/internal/util"
)

type SignInForm struct {
	Login    string `json:"login" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignUpForm struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Name            string `json:"name" validate:"notblank"`
	BirthDate       string `json:"birthDate" validate:"required,date,adult"`
	CEP             string `json:"cep" validate:"required,cep"`
	CPF             string `json:"cpf" validate:"required,cpf"`
}

// ProfileForm completa o cadastro de quem entrou pelo Google.
type ProfileForm struct {
	Name      string `json:"name" validate:"notblank"`
	BirthDate string `json:"birthDate" validate:"required,date,adult"`
	CEP       string `json:"cep" validate:"required,cep"`
	CPF       string `json:"cpf" validate:"required,cpf"`
}

type OwnerForm struct {
	Cargo string `json:"cargo" validate:"notblank,min=5"`
	CPF   string `json:"cpf" validate:"required,cpf"`
}

type UpdateCepForm struct {
	CEP string `json:"cep" validate:"required,cep"`
}

// UpdateInfoForm altera nome e nascimento; campos vazios mantêm o valor atual.
type UpdateInfoForm struct {
	Name      string `json:"name" validate:"omitempty,notblank"`
	BirthDate string `json:"birthDate" validate:"omitempty,date,adult"`
}

type ChangePasswordForm struct {
	CurrentPassword string `json:"senhaAtual" validate:"required"`
	NewPassword     string `json:"senha" validate:"required,min=6"`
	Confirm         string `json:"confirmarSenha" validate:"required,eqfield=NewPassword"`
}

func (f *SignInForm) normalize() {
	f.Login = strings.TrimSpace(strings.ToLower(f.Login))
}

func (f *SignUpForm) normalize() {
	f.Email = strings.TrimSpace(strings.ToLower(f.Email))
	f.Name = util.TitleCase(strings.TrimSpace(f.Name))
	f.BirthDate = strings.TrimSpace(f.BirthDate)
}

func (f *ProfileForm) normalize() {
	f.Name = util.TitleCase(strings.TrimSpace(f.Name))
	f.BirthDate = strings.TrimSpace(f.BirthDate)
}

func (f *OwnerForm) normalize() {
	f.Cargo = util.TitleCase(strings.TrimSpace(f.Cargo))
}

func (f *UpdateInfoForm) normalize() {
	f.Name = util.TitleCase(strings.TrimSpace(f.Name))
	f.BirthDate = strings.TrimSpace(f.BirthDate)
}
