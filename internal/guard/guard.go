package guard

import (
	"strings"

	"github.com/vozcidada/gateway/internal/session"
)

// Kind é o tipo de decisão de uma rota.
type Kind int

const (
	Render Kind = iota
	// Wait: sessão ainda em bootstrap, nada deve ser exibido.
	Wait
	Redirect
)

// Decision é o resultado de um guard.
type Decision struct {
	Kind     Kind
	Location string
}

func render() Decision { return Decision{Kind: Render} }

func redirect(location string) Decision {
	return Decision{Kind: Redirect, Location: location}
}

// Private protege telas autenticadas. requiredRole vazio aceita qualquer papel
// não administrativo.
func Private(snap session.Snapshot, requiredRole string) Decision {
	switch snap.State {
	case session.Bootstrapping:
		return Decision{Kind: Wait}
	case session.Anonymous:
		return redirect(session.PathSignIn)
	}
	if !snap.IsAuthenticated() {
		return redirect(session.PathSignIn)
	}
	if requiredRole == "" && snap.Roles.IsElevated() {
		return redirect(session.PathAdminDashboard)
	}
	if snap.State == session.Incomplete {
		return redirect(session.CompletionPath(snap.Roles))
	}
	if requiredRole != "" && !snap.Roles.Satisfies(requiredRole) {
		return redirect(session.PathDashboard)
	}
	return render()
}

// Public protege sign-in e sign-up: quem já está autenticado é desviado.
func Public(snap session.Snapshot) Decision {
	switch snap.State {
	case session.Bootstrapping:
		return Decision{Kind: Wait}
	case session.Incomplete:
		return redirect(session.CompletionPath(snap.Roles))
	case session.Complete:
		return redirect(session.PathDashboard)
	}
	return render()
}

// Completion protege as telas de conclusão de cadastro. path é o caminho
// requisitado e serve para reconhecer quem já está na tela certa.
func Completion(snap session.Snapshot, path string) Decision {
	switch snap.State {
	case session.Bootstrapping:
		return Decision{Kind: Wait}
	case session.Anonymous:
		return redirect(session.PathSignIn)
	case session.Complete:
		return redirect(session.PathDashboard)
	}
	target := session.CompletionPath(snap.Roles)
	if strings.TrimRight(path, "/") == target {
		return render()
	}
	return redirect(target)
}
