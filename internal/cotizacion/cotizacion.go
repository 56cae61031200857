// Package cotizacion models the household composition a reseller quotes for an
// exequial plan and turns it into a priced breakdown.
package cotizacion

import (
	"time"

	"github.com/Simplici0/exequial/internal/pricing"
)

// Person is a covered person on a quotation: either a Holder or a Dependent.
type Person interface {
	person()
	Birth() time.Time
}

// Holder is the primary policyholder ("titular"). Exactly one per quotation.
type Holder struct {
	Name        string    `json:"nombre" validate:"required"`
	IDNumber    string    `json:"cedula" validate:"required"`
	Phone       string    `json:"telefono" validate:"required"`
	BirthDate   time.Time `json:"fecha_nacimiento" validate:"required"`
	Email       string    `json:"email" validate:"required,email"`
	IsPensioner bool      `json:"pensionado"`
}

// Dependent is a beneficiary linked to the holder by a relationship.
type Dependent struct {
	Name         string    `json:"nombre" validate:"required"`
	IDNumber     string    `json:"cedula" validate:"required"`
	Phone        string    `json:"telefono" validate:"required"`
	BirthDate    time.Time `json:"fecha_nacimiento" validate:"required"`
	Relationship string    `json:"parentesco" validate:"required"`
	IsPensioner  bool      `json:"pensionado"`
}

// Pet is covered with a flat surcharge; its breed and age are descriptive.
type Pet struct {
	Name  string `json:"nombre" validate:"required"`
	Breed string `json:"raza"`
	Age   int    `json:"edad" validate:"gte=0"`
}

func (Holder) person()    {}
func (Dependent) person() {}

// Birth returns the holder's birth date.
func (h Holder) Birth() time.Time { return h.BirthDate }

// Birth returns the dependent's birth date.
func (d Dependent) Birth() time.Time { return d.BirthDate }

// Quotation is a household composition ready to be priced.
type Quotation struct {
	Holder     Holder      `json:"titular"`
	Dependents []Dependent `json:"beneficiarios" validate:"dive"`
	Pets       []Pet       `json:"mascotas" validate:"dive"`
}

// Persons returns the holder followed by the dependents, in order.
func (q Quotation) Persons() []Person {
	out := make([]Person, 0, 1+len(q.Dependents))
	out = append(out, q.Holder)
	for _, d := range q.Dependents {
		out = append(out, d)
	}
	return out
}

// Input validates q and resolves every person's age at today.
func (q Quotation) Input(today time.Time) (pricing.Input, error) {
	if err := q.Validate(today); err != nil {
		return pricing.Input{}, err
	}

	persons := q.Persons()
	in := pricing.Input{Ages: make([]int, len(persons)), Pets: len(q.Pets)}
	for i, p := range persons {
		in.Ages[i] = pricing.AgeFromBirthDate(p.Birth(), today)
	}
	return in, nil
}

// Price validates q, resolves ages at today and computes its breakdown.
func Price(q Quotation, today time.Time) (pricing.Breakdown, error) {
	in, err := q.Input(today)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return pricing.Calculate(in)
}
