package constants

import (
	"strings"
)

// CoverageType is the canonical identifier for one line of insurance.
type CoverageType string

const (
	GeneralLiability      CoverageType = "general_liability"
	Umbrella              CoverageType = "umbrella"
	ExcessLiability       CoverageType = "excess_liability"
	CommercialProperty    CoverageType = "commercial_property"
	BusinessAuto          CoverageType = "business_auto"
	WorkersCompensation   CoverageType = "workers_compensation"
	ProfessionalLiability CoverageType = "professional_liability"
	DirectorsOfficers     CoverageType = "directors_officers"
	EmploymentPractices   CoverageType = "employment_practices"
	CyberLiability        CoverageType = "cyber_liability"
	MedicalMalpractice    CoverageType = "medical_malpractice"
	BusinessIncome        CoverageType = "business_income"
	BuildersRisk          CoverageType = "builders_risk"
	Flood                 CoverageType = "flood"
	Earthquake            CoverageType = "earthquake"
	InlandMarine          CoverageType = "inland_marine"
	OceanMarine           CoverageType = "ocean_marine"
	EquipmentBreakdown    CoverageType = "equipment_breakdown"
	LiquorLiability       CoverageType = "liquor_liability"
	PollutionLiability    CoverageType = "pollution_liability"
	GarageLiability       CoverageType = "garage_liability"
	Crime                 CoverageType = "crime"
	FidelityBond          CoverageType = "fidelity_bond"
	SuretyBond            CoverageType = "surety_bond"
	Aviation              CoverageType = "aviation"
)

// CoverageFamily groups coverage types that share one extraction prompt.
type CoverageFamily string

const (
	FamilyGeneralLiability     CoverageFamily = "general_liability"
	FamilyUmbrellaExcess       CoverageFamily = "umbrella_excess"
	FamilyCommercialProperty   CoverageFamily = "commercial_property"
	FamilyBusinessAuto         CoverageFamily = "business_auto"
	FamilyWorkersComp          CoverageFamily = "workers_comp"
	FamilyClaimsMade           CoverageFamily = "claims_made"
	FamilyPropertyExtensions   CoverageFamily = "property_extensions"
	FamilyMarineEquipment      CoverageFamily = "marine_equipment"
	FamilySpecializedLiability CoverageFamily = "specialized_liability"
	FamilyCrimeSuretyAviation  CoverageFamily = "crime_surety_aviation"
	FamilyGeneric              CoverageFamily = "generic"
)

var allCoverageTypes = []CoverageType{
	GeneralLiability,
	Umbrella,
	ExcessLiability,
	CommercialProperty,
	BusinessAuto,
	WorkersCompensation,
	ProfessionalLiability,
	DirectorsOfficers,
	EmploymentPractices,
	CyberLiability,
	MedicalMalpractice,
	BusinessIncome,
	BuildersRisk,
	Flood,
	Earthquake,
	InlandMarine,
	OceanMarine,
	EquipmentBreakdown,
	LiquorLiability,
	PollutionLiability,
	GarageLiability,
	Crime,
	FidelityBond,
	SuretyBond,
	Aviation,
}

// AsStringSlice lists every known coverage type, in declaration order.
func AsStringSlice() []string {
	result := make([]string, len(allCoverageTypes))
	for i, ct := range allCoverageTypes {
		result[i] = string(ct)
	}
	return result
}

var coverageSynonyms = map[string]CoverageType{
	"cgl":                          GeneralLiability,
	"gl":                           GeneralLiability,
	"commercial_general_liability": GeneralLiability,

	"umbrella_liability":  Umbrella,
	"commercial_umbrella": Umbrella,
	"excess":              ExcessLiability,

	"property":                       CommercialProperty,
	"building_and_personal_property": CommercialProperty,

	"auto":            BusinessAuto,
	"automobile":      BusinessAuto,
	"commercial_auto": BusinessAuto,

	"wc":                                           WorkersCompensation,
	"workers_comp":                                 WorkersCompensation,
	"workers_compensation_and_employers_liability": WorkersCompensation,

	"e&o":                            ProfessionalLiability,
	"e_o":                            ProfessionalLiability,
	"errors_and_omissions":           ProfessionalLiability,
	"d&o":                            DirectorsOfficers,
	"d_o":                            DirectorsOfficers,
	"directors_and_officers":         DirectorsOfficers,
	"epl":                            EmploymentPractices,
	"epli":                           EmploymentPractices,
	"employment_practices_liability": EmploymentPractices,
	"cyber":                          CyberLiability,
	"med_mal":                        MedicalMalpractice,

	"time_element":          BusinessIncome,
	"business_interruption": BusinessIncome,
	"boiler_and_machinery":  EquipmentBreakdown,

	"liquor":    LiquorLiability,
	"pollution": PollutionLiability,
	"garage":    GarageLiability,

	"commercial_crime": Crime,
	"fidelity":         FidelityBond,
	"surety":           SuretyBond,
	"aircraft":         Aviation,
}

// NormalizeCoverageLabel lowercases a free-text label, drops parenthesised
// abbreviations and folds separators to '_'.
func NormalizeCoverageLabel(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if i := strings.Index(s, "("); i > 0 {
		s = s[:i]
	}
	s = strings.NewReplacer(" ", "_", "-", "_", "/", "_", ".", "").Replace(s)
	s = strings.ReplaceAll(s, "_&_", "&")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// CanonicalizeCoverage maps a model-provided label onto a known CoverageType.
// The second return is false when the label is unknown; the normalized label is
// still returned so the generic extractor can handle it.
func CanonicalizeCoverage(input string) (CoverageType, bool) {
	normalized := NormalizeCoverageLabel(input)
	if normalized == "" {
		return "", false
	}
	if ct, ok := coverageSynonyms[normalized]; ok {
		return ct, true
	}
	for _, ct := range allCoverageTypes {
		if normalized == string(ct) {
			return ct, true
		}
	}
	return CoverageType(normalized), false
}
