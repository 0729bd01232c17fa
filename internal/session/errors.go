package session

import "errors"

var (
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrAddressLookup      = errors.New("cep não encontrado")
	ErrProfileFetch       = errors.New("não foi possível carregar o perfil")
	ErrPasswordChange     = errors.New("erro ao tentar redefinir a senha")
	ErrAccountExists      = errors.New("conta já cadastrada")
	ErrNotAuthenticated   = errors.New("sessão não autenticada")
	ErrNotIncomplete      = errors.New("cadastro já concluído ou sessão anônima")
	ErrNotOwner           = errors.New("conclusão restrita ao proprietário")
	ErrNoCitizenProfile   = errors.New("sessão sem perfil de cidadão")
)
