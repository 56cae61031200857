package cotizacion

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/exequial/internal/pricing"
)

var today = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func born(years int) time.Time {
	return today.AddDate(-years, 0, 0)
}

func holder(age int) Holder {
	return Holder{
		Name:      "Ana Pérez",
		IDNumber:  "1020304050",
		Phone:     "3001234567",
		BirthDate: born(age),
		Email:     "ana@example.com",
	}
}

func dependent(age int, relationship string) Dependent {
	return Dependent{
		Name:         "Luis Pérez",
		IDNumber:     "1122334455",
		Phone:        "3007654321",
		BirthDate:    born(age),
		Relationship: relationship,
	}
}

func TestPrice_HolderWithSeniorDependentAndPet(t *testing.T) {
	q := Quotation{
		Holder:     holder(40),
		Dependents: []Dependent{dependent(30, "hermano"), dependent(75, "madre")},
		Pets:       []Pet{{Name: "Toby", Breed: "criollo", Age: 4}},
	}

	got, err := Price(q, today)
	require.NoError(t, err)

	assert.Equal(t, 3, got.PersonCount)
	assert.Equal(t, 1, got.SeniorCount)
	assert.Equal(t, 0, got.ExtraDependentCount)
	assert.Equal(t, int64(36000), got.TotalPrice)
	assert.Equal(t, int64(9500), got.CommissionToReseller)
	assert.Equal(t, int64(19500), got.CommissionToCompany)
}

func TestPrice_PensionerFlagDoesNotChangePrice(t *testing.T) {
	q := Quotation{Holder: holder(65)}
	plain, err := Price(q, today)
	require.NoError(t, err)

	q.Holder.IsPensioner = true
	pensioner, err := Price(q, today)
	require.NoError(t, err)

	assert.Equal(t, plain, pensioner)
}

func TestPrice_AgeResolvedAtEvaluationDate(t *testing.T) {
	h := holder(0)
	h.BirthDate = time.Date(1951, 3, 16, 0, 0, 0, 0, time.UTC)
	q := Quotation{Holder: h}

	dayBefore, err := Price(q, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, dayBefore.SeniorCount, "holder is still 72")

	birthday, err := Price(q, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, birthday.SeniorCount, "holder turns 73")
}

func TestPersons_HolderFirst(t *testing.T) {
	q := Quotation{
		Holder:     holder(50),
		Dependents: []Dependent{dependent(20, "hija"), dependent(18, "hijo")},
	}

	persons := q.Persons()
	require.Len(t, persons, 3)
	_, isHolder := persons[0].(Holder)
	assert.True(t, isHolder)
	for _, p := range persons[1:] {
		_, isDependent := p.(Dependent)
		assert.True(t, isDependent)
	}
}

func TestValidate_ReportsMissingFields(t *testing.T) {
	q := Quotation{
		Holder:     Holder{Name: "Ana", BirthDate: born(40), Email: "no-es-correo"},
		Dependents: []Dependent{{Name: "Luis", IDNumber: "1", Phone: "3", BirthDate: born(10)}},
	}

	err := q.Validate(today)
	require.Error(t, err)

	var verr *pricing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "es requerido", verr.Fields["titular.cedula"])
	assert.Equal(t, "es requerido", verr.Fields["titular.telefono"])
	assert.Equal(t, "correo electrónico inválido", verr.Fields["titular.email"])
	assert.Equal(t, "es requerido", verr.Fields["beneficiarios[0].parentesco"])
	assert.NotContains(t, verr.Fields, "titular.nombre")
}

func TestValidate_RejectsFutureAndImplausibleBirthDates(t *testing.T) {
	q := Quotation{
		Holder:     holder(40),
		Dependents: []Dependent{dependent(130, "abuelo"), dependent(0, "hijo")},
	}
	q.Dependents[1].BirthDate = today.AddDate(0, 0, 1)

	_, err := Price(q, today)
	require.Error(t, err)

	var verr *pricing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "beneficiarios[0].fecha_nacimiento")
	assert.Contains(t, verr.Fields, "beneficiarios[1].fecha_nacimiento")
}

func TestValidate_ZeroHolderFails(t *testing.T) {
	_, err := Price(Quotation{}, today)

	var verr *pricing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "titular.nombre")
	assert.Contains(t, verr.Fields, "titular.fecha_nacimiento")
}
