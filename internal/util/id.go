package util

import (
	"time"

	"github.com/google/uuid"
)

// NewID gera identificador aleatório (uuid v4).
func NewID() string {
	return uuid.NewString()
}

// IsID informa se value é um uuid válido.
func IsID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// Now devolve o horário atual; substituível em testes.
var Now = time.Now

// BackendTimestamp formata datas como o backend espera ("2006-01-02 15:04:05").
func BackendTimestamp(t time.Time) string {
	return t.Format(time.DateTime)
}
