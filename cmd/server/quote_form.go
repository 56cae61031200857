package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/exequial/internal/cotizacion"
	"github.com/Simplici0/exequial/internal/pricing"
)

type holderRequest struct {
	Nombre          string `json:"nombre"`
	Cedula          string `json:"cedula"`
	Telefono        string `json:"telefono"`
	FechaNacimiento string `json:"fecha_nacimiento"`
	Email           string `json:"email"`
	Pensionado      bool   `json:"pensionado"`
}

type dependentRequest struct {
	Nombre          string `json:"nombre"`
	Cedula          string `json:"cedula"`
	Telefono        string `json:"telefono"`
	FechaNacimiento string `json:"fecha_nacimiento"`
	Parentesco      string `json:"parentesco"`
	Pensionado      bool   `json:"pensionado"`
}

type petRequest struct {
	Nombre string `json:"nombre"`
	Raza   string `json:"raza"`
	Edad   int    `json:"edad"`
}

type quotationRequest struct {
	Titular       holderRequest      `json:"titular"`
	Beneficiarios []dependentRequest `json:"beneficiarios"`
	Mascotas      []petRequest       `json:"mascotas"`
}

type createQuoteRequest struct {
	Titular       holderRequest      `json:"titular"`
	Beneficiarios []dependentRequest `json:"beneficiarios"`
	Mascotas      []petRequest       `json:"mascotas"`
	ClienteID     string             `json:"cliente_id"`
	TenderoID     string             `json:"tendero_id"`
}

func (req createQuoteRequest) quotation() quotationRequest {
	return quotationRequest{Titular: req.Titular, Beneficiarios: req.Beneficiarios, Mascotas: req.Mascotas}
}

// toQuotation converts the request into a quotation and validates it at
// today. Field errors from date parsing and validation are reported together.
func (req quotationRequest) toQuotation(today time.Time) (cotizacion.Quotation, error) {
	verr := &pricing.ValidationError{}

	q := cotizacion.Quotation{
		Holder: cotizacion.Holder{
			Name:        strings.TrimSpace(req.Titular.Nombre),
			IDNumber:    strings.TrimSpace(req.Titular.Cedula),
			Phone:       strings.TrimSpace(req.Titular.Telefono),
			BirthDate:   parseDate(verr, "titular.fecha_nacimiento", req.Titular.FechaNacimiento),
			Email:       strings.TrimSpace(req.Titular.Email),
			IsPensioner: req.Titular.Pensionado,
		},
		Dependents: make([]cotizacion.Dependent, 0, len(req.Beneficiarios)),
		Pets:       make([]cotizacion.Pet, 0, len(req.Mascotas)),
	}
	for i, d := range req.Beneficiarios {
		q.Dependents = append(q.Dependents, cotizacion.Dependent{
			Name:         strings.TrimSpace(d.Nombre),
			IDNumber:     strings.TrimSpace(d.Cedula),
			Phone:        strings.TrimSpace(d.Telefono),
			BirthDate:    parseDate(verr, fmt.Sprintf("beneficiarios[%d].fecha_nacimiento", i), d.FechaNacimiento),
			Relationship: strings.TrimSpace(d.Parentesco),
			IsPensioner:  d.Pensionado,
		})
	}
	for _, p := range req.Mascotas {
		q.Pets = append(q.Pets, cotizacion.Pet{
			Name:  strings.TrimSpace(p.Nombre),
			Breed: strings.TrimSpace(p.Raza),
			Age:   p.Edad,
		})
	}

	if err := q.Validate(today); err != nil {
		var ve *pricing.ValidationError
		if !errors.As(err, &ve) {
			return cotizacion.Quotation{}, err
		}
		for field, msg := range ve.Fields {
			verr.Add(field, msg)
		}
	}
	if err := verr.OrNil(); err != nil {
		return cotizacion.Quotation{}, err
	}
	return q, nil
}

// parseDate parses a YYYY-MM-DD date. Empty input yields the zero time so the
// required check reports it.
func parseDate(verr *pricing.ValidationError, field, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		verr.Add(field, "formato de fecha inválido, use AAAA-MM-DD")
		return time.Time{}
	}
	return t
}
