package auth

import (
	"sort"
	"strings"
)

const (
	RoleUser  = "ROLE_USER"
	RoleAgent = "ROLE_AGENT"
	RoleAdmin = "ROLE_ADMIN"
	RoleOwner = "ROLE_OWNER"
)

// RoleSet é um conjunto imutável de papéis normalizados.
// O valor zero é o conjunto vazio, equivalente a "sem papéis".
type RoleSet struct {
	roles map[string]struct{}
}

// NewRoleSet normaliza e deduplica os papéis informados.
func NewRoleSet(roles ...string) RoleSet {
	set := RoleSet{}
	for _, role := range roles {
		role = normalizeRole(role)
		if role == "" {
			continue
		}
		if set.roles == nil {
			set.roles = make(map[string]struct{}, len(roles))
		}
		set.roles[role] = struct{}{}
	}
	return set
}

// Has informa se o papel pertence ao conjunto.
func (s RoleSet) Has(role string) bool {
	_, ok := s.roles[normalizeRole(role)]
	return ok
}

// Any informa se ao menos um dos papéis pertence ao conjunto.
func (s RoleSet) Any(roles ...string) bool {
	for _, role := range roles {
		if s.Has(role) {
			return true
		}
	}
	return false
}

// Empty informa se não há papéis.
func (s RoleSet) Empty() bool {
	return len(s.roles) == 0
}

// IsStaff indica papéis de funcionário (perfil em /api/funcionario).
func (s RoleSet) IsStaff() bool {
	return s.Any(RoleAgent, RoleAdmin, RoleOwner)
}

// IsElevated indica papéis com painel administrativo.
func (s RoleSet) IsElevated() bool {
	return s.Any(RoleAdmin, RoleOwner)
}

// Satisfies verifica papel exigido por rota. ROLE_OWNER cobre ROLE_ADMIN.
func (s RoleSet) Satisfies(required string) bool {
	required = normalizeRole(required)
	if required == "" {
		return true
	}
	if s.Has(required) {
		return true
	}
	return required == RoleAdmin && s.Has(RoleOwner)
}

// Slice devolve os papéis ordenados.
func (s RoleSet) Slice() []string {
	out := make([]string, 0, len(s.roles))
	for role := range s.roles {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

func normalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return ""
	}
	if !strings.HasPrefix(role, "ROLE_") {
		role = "ROLE_" + role
	}
	return role
}
