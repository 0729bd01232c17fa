package session

import (
	"github.com/vozcidada/gateway/internal/auth"
	"github.com/vozcidada/gateway/internal/backend"
)

// State é a fase da sessão. Papéis são ortogonais ao estado.
type State int

const (
	Bootstrapping State = iota
	Anonymous
	Incomplete
	Complete
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "BOOTSTRAPPING"
	case Anonymous:
		return "ANONYMOUS"
	case Incomplete:
		return "INCOMPLETE"
	case Complete:
		return "COMPLETE"
	}
	return "UNKNOWN"
}

const (
	PathSignIn         = "/signin"
	PathDashboard      = "/dashboard"
	PathAdminDashboard = "/admin/dashboard"
	PathOAuthSignUp    = "/signup/oauth"
	PathOwnerSignUp    = "/signup/owner"
)

// Snapshot é uma cópia somente leitura da sessão.
type Snapshot struct {
	State             State
	Subject           string
	Roles             auth.RoleSet
	AuthStatus        auth.AuthStatus
	Citizen           *backend.Usuario
	Staff             *backend.Funcionario
	IsGoogleUser      bool
	ProfilePictureURL string
	OAuth             bool
}

// Loading só é verdadeiro durante o bootstrap.
func (s Snapshot) Loading() bool {
	return s.State == Bootstrapping
}

// IsAuthenticated equivale a possuir papéis.
func (s Snapshot) IsAuthenticated() bool {
	return !s.Roles.Empty() && (s.State == Incomplete || s.State == Complete)
}

// CompletionPath é a tela de conclusão de cadastro para os papéis informados.
func CompletionPath(roles auth.RoleSet) string {
	if roles.Has(auth.RoleOwner) {
		return PathOwnerSignUp
	}
	return PathOAuthSignUp
}

// LandingPath é o destino após autenticação completa.
func LandingPath(roles auth.RoleSet) string {
	if roles.IsElevated() {
		return PathAdminDashboard
	}
	return PathDashboard
}
