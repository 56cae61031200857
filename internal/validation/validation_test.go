package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/exequial/internal/pricing"
)

type signup struct {
	Name     string `json:"nombre" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Cedula   string `json:"cedula" validate:"required,numeric"`
	Password string `json:"password" validate:"required,min=6"`
	Status   string `json:"estado" validate:"omitempty,oneof=pendiente asesoria"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(signup{Email: "x", Cedula: "12a", Password: "123", Status: "pagada"})
	require.Error(t, err)

	var verr *pricing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"nombre":   "es requerido",
		"email":    "correo electrónico inválido",
		"cedula":   "debe contener solo números",
		"password": "debe tener al menos 6 caracteres",
		"estado":   "debe ser uno de: pendiente, asesoria",
	}, verr.Fields)
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(signup{Name: "Ana", Email: "ana@example.com", Cedula: "123", Password: "123456"}))
}

func TestStructRejectsNonStruct(t *testing.T) {
	err := Struct(42)
	require.Error(t, err)
	var verr *pricing.ValidationError
	assert.False(t, errors.As(err, &verr))
}
