package pricing

import "fmt"

// Plan pricing constants, in COP.
const (
	BasePrice                int64 = 25000
	SeniorAgeThreshold             = 72
	SeniorSurcharge          int64 = 4000
	ExtraDependentThreshold        = 7
	ExtraDependentSurcharge  int64 = 4200
	PetSurcharge             int64 = 7000
	MaxAge                         = 120
	CommissionResellerBase   int64 = 8000
	CommissionCompanyBase    int64 = 17000
	CommissionResellerSenior int64 = 1500
	CommissionCompanySenior  int64 = 2500
)

// Input is a household composition reduced to what pricing depends on.
// Ages[0] belongs to the holder.
type Input struct {
	Ages []int
	Pets int
}

// Breakdown contains every line item of a priced quotation.
// Commissions are a separate payout model and do not partition TotalPrice.
type Breakdown struct {
	PersonCount                  int   `json:"person_count"`
	SeniorCount                  int   `json:"senior_count"`
	ExtraDependentCount          int   `json:"extra_dependent_count"`
	PetCount                     int   `json:"pet_count"`
	BasePrice                    int64 `json:"base_price"`
	SeniorSurchargeTotal         int64 `json:"senior_surcharge_total"`
	ExtraDependentSurchargeTotal int64 `json:"extra_dependent_surcharge_total"`
	PetSurchargeTotal            int64 `json:"pet_surcharge_total"`
	TotalPrice                   int64 `json:"total_price"`
	CommissionToReseller         int64 `json:"commission_to_reseller"`
	CommissionToCompany          int64 `json:"commission_to_company"`
}

// Calculate prices a resolved composition. It fails with *ValidationError when
// the composition is empty or an age is outside 0..MaxAge.
func Calculate(in Input) (Breakdown, error) {
	if err := validateInput(in); err != nil {
		return Breakdown{}, err
	}

	personCount := len(in.Ages)
	extraDependents := max(0, personCount-ExtraDependentThreshold)

	seniors := 0
	for _, age := range in.Ages {
		if age > SeniorAgeThreshold {
			seniors++
		}
	}

	seniorTotal := int64(seniors) * SeniorSurcharge
	extraTotal := int64(extraDependents) * ExtraDependentSurcharge
	petTotal := int64(in.Pets) * PetSurcharge

	return Breakdown{
		PersonCount:                  personCount,
		SeniorCount:                  seniors,
		ExtraDependentCount:          extraDependents,
		PetCount:                     in.Pets,
		BasePrice:                    BasePrice,
		SeniorSurchargeTotal:         seniorTotal,
		ExtraDependentSurchargeTotal: extraTotal,
		PetSurchargeTotal:            petTotal,
		TotalPrice:                   BasePrice + extraTotal + seniorTotal + petTotal,
		CommissionToReseller:         CommissionResellerBase + int64(seniors)*CommissionResellerSenior,
		CommissionToCompany:          CommissionCompanyBase + int64(seniors)*CommissionCompanySenior,
	}, nil
}

func validateInput(in Input) error {
	verr := &ValidationError{}
	if len(in.Ages) == 0 {
		verr.Add("personas", "debe incluir al menos al titular")
	}
	for i, age := range in.Ages {
		if age < 0 || age > MaxAge {
			verr.Add(fmt.Sprintf("personas[%d].edad", i), fmt.Sprintf("la edad debe estar entre 0 y %d", MaxAge))
		}
	}
	if in.Pets < 0 {
		verr.Add("mascotas", "no puede ser negativo")
	}
	return verr.OrNil()
}
