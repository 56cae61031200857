package cotizacion

import (
	"fmt"
	"time"

	"github.com/Simplici0/exequial/internal/pricing"
	"github.com/Simplici0/exequial/internal/validation"
)

// Validate checks the fields the business requires before a quotation can be
// priced. It returns a *pricing.ValidationError keyed by JSON field path.
func (q Quotation) Validate(today time.Time) error {
	verr := &pricing.ValidationError{}
	if err := validation.Into(verr, q); err != nil {
		return err
	}

	for i, p := range q.Persons() {
		field := "titular.fecha_nacimiento"
		if i > 0 {
			field = fmt.Sprintf("beneficiarios[%d].fecha_nacimiento", i-1)
		}
		b := p.Birth()
		if b.IsZero() {
			continue
		}
		if b.After(today) {
			verr.Add(field, "no puede ser una fecha futura")
			continue
		}
		if pricing.AgeFromBirthDate(b, today) > pricing.MaxAge {
			verr.Add(field, fmt.Sprintf("la edad no puede superar %d años", pricing.MaxAge))
		}
	}

	return verr.OrNil()
}
