package util

import (
	"testing"
	"time"
)

type sampleForm struct {
	Email      string `json:"email" validate:"required,email"`
	CPF        string `json:"cpf" validate:"required,cpf"`
	CEP        string `json:"cep" validate:"required,cep"`
	Nascimento string `json:"dataNascimento" validate:"required,date,adult"`
	Cargo      string `json:"cargo" validate:"notblank"`
}

func validSample() sampleForm {
	return sampleForm{
		Email:      "maria@example.com",
		CPF:        "529.982.247-25",
		CEP:        "01001-000",
		Nascimento: "1990-05-10",
		Cargo:      "Fiscal",
	}
}

func TestValidateAcceptsValidForm(t *testing.T) {
	if err := Validate(validSample()); err != nil {
		t.Fatalf("expected valid form, got %v", err)
	}
}

func TestValidateReportsFieldsByJSONName(t *testing.T) {
	form := validSample()
	form.Email = "maria"
	form.CPF = "111.111.111-11"
	form.CEP = "0100"
	form.Cargo = "   "

	err := Validate(form)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := err.(*ValidationError).Fields
	for _, name := range []string{"email", "cpf", "cep", "cargo"} {
		if _, ok := fields[name]; !ok {
			t.Fatalf("expected field %q in %v", name, fields)
		}
	}
	if fields["cargo"] != "cargo obrigatório" {
		t.Fatalf("unexpected message %q", fields["cargo"])
	}
}

func TestValidateRejectsMinor(t *testing.T) {
	restore := Now
	Now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { Now = restore }()

	form := validSample()
	form.Nascimento = "2010-01-01"
	err := Validate(form)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := err.(*ValidationError).Fields["dataNascimento"]; msg != "é preciso ter mais de 18 anos" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestIsAdult(t *testing.T) {
	today := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		birth time.Time
		want  bool
	}{
		{time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2008, 6, 2, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2008, 7, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(1980, 12, 31, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		if got := IsAdult(tc.birth, today); got != tc.want {
			t.Errorf("IsAdult(%s) = %v, want %v", tc.birth.Format(time.DateOnly), got, tc.want)
		}
	}
}

func TestValidCPF(t *testing.T) {
	cases := map[string]bool{
		"529.982.247-25": true,
		"52998224725":    true,
		"529.982.247-24": false,
		"000.000.000-00": false,
		"123":            false,
	}
	for input, want := range cases {
		if got := ValidCPF(input); got != want {
			t.Errorf("ValidCPF(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestDigitsAndTitleCase(t *testing.T) {
	if got := Digits("01001-000"); got != "01001000" {
		t.Fatalf("unexpected digits %q", got)
	}
	if got := TitleCase("  maria  da silva "); got != "Maria Da Silva" {
		t.Fatalf("unexpected title case %q", got)
	}
}

func TestIDHelpers(t *testing.T) {
	id := NewID()
	if !IsID(id) || IsID("nope") {
		t.Fatalf("unexpected id validation for %q", id)
	}
	ts := BackendTimestamp(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if ts != "2026-01-02 03:04:05" {
		t.Fatalf("unexpected timestamp %q", ts)
	}
}
