package util

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	nonDigits = regexp.MustCompile(`[^0-9]`)
	cepRegex  = regexp.MustCompile(`^\d{5}-?\d{3}$`)
	cpfRegex  = regexp.MustCompile(`^\d{3}\.?\d{3}\.?\d{3}-?\d{2}$`)
)

// ValidationError agrega falhas de formulário por campo (chave = nome JSON).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "dados inválidos: " + strings.Join(parts, "; ")
}

// IsValidation informa se err é uma falha de validação.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Invalid cria erro de validação para um único campo.
func Invalid(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

var messages = map[string]string{
	"required":  "%s obrigatório",
	"email":     "%s com formato inválido",
	"min":       "%s deve ter pelo menos %s caracteres",
	"max":       "%s deve ter no máximo %s caracteres",
	"gte":       "%s deve ser maior ou igual a %s",
	"lte":       "%s deve ser menor ou igual a %s",
	"eqfield":   "%s: as senhas precisam ser iguais",
	"oneof":     "%s deve ser um de: %s",
	"latitude":  "%s inválida",
	"longitude": "%s inválida",
	"cep":       "%s inválido, use 00000-000 ou 00000000",
	"cpf":       "%s inválido, use 000.000.000-00 ou 00000000000",
	"adult":     "é preciso ter mais de 18 anos",
	"date":      "%s deve estar no formato AAAA-MM-DD",
	"notblank":  "%s obrigatório",
}

// Validate aplica as tags `validate` da struct e devolve *ValidationError.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s inválido", fe.Field())
	}
	switch strings.Count(tmpl, "%s") {
	case 0:
		return tmpl
	case 1:
		return fmt.Sprintf(tmpl, fe.Field())
	default:
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("cep", func(fl validator.FieldLevel) bool {
		return cepRegex.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return cpfRegex.MatchString(value) && ValidCPF(value)
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.DateOnly, strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
	_ = v.RegisterValidation("adult", func(fl validator.FieldLevel) bool {
		birth, err := time.Parse(time.DateOnly, strings.TrimSpace(fl.Field().String()))
		if err != nil {
			return false
		}
		return IsAdult(birth, Now())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// IsAdult informa se a pessoa já completou 18 anos em today.
func IsAdult(birth, today time.Time) bool {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age >= 18
}

// ValidCPF confere os dígitos verificadores. Sequências repetidas são rejeitadas.
func ValidCPF(value string) bool {
	cpf := Digits(value)
	if len(cpf) != 11 || strings.Count(cpf, cpf[:1]) == 11 {
		return false
	}
	check := func(n int) bool {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(cpf[i]-'0') * (n + 1 - i)
		}
		rev := 11 - sum%11
		if rev >= 10 {
			rev = 0
		}
		return rev == int(cpf[n]-'0')
	}
	return check(9) && check(10)
}

// Digits remove tudo que não for dígito (CEP, CPF).
func Digits(value string) string {
	return nonDigits.ReplaceAllString(value, "")
}

// TitleCase capitaliza cada palavra de nomes próprios.
func TitleCase(value string) string {
	words := strings.Fields(value)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
