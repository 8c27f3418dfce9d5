package extract

import (
	c "github.com/joseph-ayodele/policy-structurer/constants"
)

// family is one variant of the coverage extractor: a prompt shared by its
// coverage types, an optional context sentence per type, the terms used to
// pick relevant chunks, and the hook that promotes family-specific details.
type family struct {
	kind     c.CoverageFamily
	prompt   string
	contexts map[c.CoverageType]string
	terms    []string
	promote  promoteFunc
}

var generalLiabilityFamily = &family{
	kind: c.FamilyGeneralLiability,
	prompt: `This is Commercial General Liability. Limits to look for: each occurrence, general aggregate,
products-completed operations aggregate, personal and advertising injury, damage to rented premises,
medical expense. Put in "details": products_completed_ops_aggregate, personal_advertising_injury,
damage_to_rented_premises, medical_expense (numbers), endorsements and exclusions (arrays of form
numbers or titles), classification_codes (array of {code, description, premium_basis}).`,
	terms: []string{"general liability", "each occurrence", "general aggregate", "cg 00 01"},
	promote: chain(
		promoteMoney("products_completed_ops_aggregate", "personal_advertising_injury", "damage_to_rented_premises", "medical_expense"),
		promoteStrings("endorsements", "exclusions"),
		promoteList("classification_codes"),
	),
}

var umbrellaExcessFamily = &family{
	kind: c.FamilyUmbrellaExcess,
	prompt: `This is an umbrella or excess liability layer. eachOccurrenceLimit and aggregateLimit are the
layer's own limits; deductible is the self-insured retention. Put in "details": attachment_point,
self_insured_retention (numbers), underlying_requirements (array of {coverage, carrier, each_occurrence,
aggregate}), retained_limits (object of line of business to retained amount), follow_form (true/false).`,
	contexts: map[c.CoverageType]string{
		c.Umbrella:        "An umbrella policy drops down over exhausted underlying limits and may cover gaps above a self-insured retention.",
		c.ExcessLiability: "An excess policy follows the form of the underlying policy and responds only after underlying limits are exhausted.",
	},
	terms: []string{"umbrella", "excess", "underlying", "retention", "attachment"},
	promote: chain(
		promoteMoney("attachment_point", "self_insured_retention"),
		promoteList("underlying_requirements"),
		promoteRetainedLimits,
		promoteBools("follow_form"),
	),
}

var commercialPropertyFamily = &family{
	kind: c.FamilyCommercialProperty,
	prompt: `This is Commercial Property. aggregateLimit is the total insured value; deductible is the all
other perils deductible. Put in "details": building_limit, business_personal_property_limit (numbers),
valuation ("replacement_cost" or "actual_cash_value"), coinsurance_percent (number), covered_locations
(array of {address, building_limit, bpp_limit}), causes_of_loss ("basic", "broad" or "special").`,
	terms: []string{"property", "building", "personal property", "coinsurance", "causes of loss"},
	promote: chain(
		promoteMoney("building_limit", "business_personal_property_limit", "coinsurance_percent"),
		promoteText("valuation", "causes_of_loss"),
		promoteList("covered_locations"),
	),
}

var businessAutoFamily = &family{
	kind: c.FamilyBusinessAuto,
	prompt: `This is Business Auto. eachOccurrenceLimit is the combined single limit. Put in "details":
covered_auto_symbols (array such as "1", "7", "8", "9"), hired_auto and non_owned_auto (true/false),
uninsured_motorist_limit, medical_payments_limit, comprehensive_deductible, collision_deductible (numbers),
scheduled_vehicles (array of {year, make, vin}).`,
	terms: []string{"auto", "vehicle", "symbol", "hired", "non-owned"},
	promote: chain(
		promoteStrings("covered_auto_symbols"),
		promoteBools("hired_auto", "non_owned_auto"),
		promoteMoney("uninsured_motorist_limit", "medical_payments_limit", "comprehensive_deductible", "collision_deductible"),
		promoteList("scheduled_vehicles"),
	),
}

var workersCompFamily = &family{
	kind: c.FamilyWorkersComp,
	prompt: `This is Workers Compensation and Employers Liability. Part One has statutory limits; leave
eachOccurrenceLimit null unless a number is shown. Put in "details": covered_states (array of two-letter
state codes, Item 3.A), employers_liability (object with each_accident, disease_each_employee,
disease_policy_limit), experience_mod (number), excluded_states (array).`,
	terms: []string{"workers compensation", "employers liability", "statutory", "item 3"},
	promote: chain(
		promoteStrings("covered_states", "excluded_states"),
		promoteLimits("employers_liability"),
		promoteMoney("experience_mod"),
	),
}

var claimsMadeFamily = &family{
	kind: c.FamilyClaimsMade,
	prompt: `This coverage is usually written on a claims-made basis. Set isClaimsMade and give the
retroactiveDate when shown. eachOccurrenceLimit is the each claim limit; deductible is the retention.
Put in "details": prior_acts_date (YYYY-MM-DD), extended_reporting_period (text), defense_inside_limits
(true/false), pending_prior_litigation_date (YYYY-MM-DD), sublimits (object of name to amount).`,
	contexts: map[c.CoverageType]string{
		c.ProfessionalLiability: "Professional liability (errors and omissions) covers claims arising from negligent professional services.",
		c.DirectorsOfficers:     "Directors and officers liability covers management decisions; look for Side A, B and C insuring agreements.",
		c.EmploymentPractices:   "Employment practices liability covers discrimination, harassment and wrongful termination claims; note any third-party coverage.",
		c.CyberLiability:        "Cyber liability covers network security and privacy events; sublimits for ransomware, breach response and business interruption are common.",
		c.MedicalMalpractice:    "Medical malpractice covers claims from patient care; note per-practitioner limits and any consent-to-settle clause.",
	},
	terms: []string{"claims made", "claims-made", "retroactive", "prior acts", "extended reporting"},
	promote: chain(
		promoteDates("prior_acts_date", "pending_prior_litigation_date"),
		promoteText("extended_reporting_period"),
		promoteBools("defense_inside_limits"),
		promoteLimits("sublimits"),
	),
}

var propertyExtensionsFamily = &family{
	kind: c.FamilyPropertyExtensions,
	prompt: `This coverage extends first-party property protection. Put in "details": waiting_period_hours,
sublimit (numbers), period_of_restoration (text), flood_zone (text), percentage_deductible (number, for
earthquake or named storm), project_address (text, for builders risk).`,
	contexts: map[c.CoverageType]string{
		c.BusinessIncome: "Business income pays lost earnings and extra expense during the period of restoration after covered damage.",
		c.BuildersRisk:   "Builders risk covers buildings under construction and materials on site or in transit.",
		c.Flood:          "Flood coverage is often written separately or through the NFIP; note the flood zone.",
		c.Earthquake:     "Earthquake deductibles are usually a percentage of insured value.",
	},
	terms: []string{"business income", "extra expense", "builders risk", "flood", "earthquake", "waiting period"},
	promote: chain(
		promoteMoney("waiting_period_hours", "sublimit", "percentage_deductible"),
		promoteText("period_of_restoration", "flood_zone", "project_address"),
	),
}

var marineEquipmentFamily = &family{
	kind: c.FamilyMarineEquipment,
	prompt: `This coverage protects property in transit or specialised equipment. Put in "details":
scheduled_equipment (array of {description, serial_number, value}), cargo_limit, per_conveyance_limit,
per_location_limit (numbers), territory (text).`,
	contexts: map[c.CoverageType]string{
		c.InlandMarine:       "Inland marine covers movable property such as contractors equipment and goods in transit over land.",
		c.OceanMarine:        "Ocean marine covers hulls and cargo on water; look for per-vessel and per-conveyance limits.",
		c.EquipmentBreakdown: "Equipment breakdown (boiler and machinery) covers sudden mechanical or electrical failure.",
	},
	terms: []string{"inland marine", "ocean marine", "cargo", "equipment", "boiler", "machinery", "transit"},
	promote: chain(
		promoteList("scheduled_equipment"),
		promoteMoney("cargo_limit", "per_conveyance_limit", "per_location_limit"),
		promoteText("territory"),
	),
}

var specializedLiabilityFamily = &family{
	kind: c.FamilySpecializedLiability,
	prompt: `This is a specialised liability coverage. Put in "details": garage_keepers_limit (number),
covered_operations (array), pollution_conditions (array), liquor_receipts (number), sublimits
(object of name to amount).`,
	contexts: map[c.CoverageType]string{
		c.LiquorLiability:    "Liquor liability covers bodily injury or property damage caused by an intoxicated person served by the insured.",
		c.PollutionLiability: "Pollution liability covers cleanup costs and third-party claims from pollution conditions; it may be claims-made.",
		c.GarageLiability:    "Garage liability covers auto dealers and repair shops; garagekeepers covers customers' vehicles in the insured's care.",
	},
	terms: []string{"liquor", "pollution", "garage", "garagekeepers"},
	promote: chain(
		promoteMoney("garage_keepers_limit", "liquor_receipts"),
		promoteStrings("covered_operations", "pollution_conditions"),
		promoteLimits("sublimits"),
	),
}

var crimeSuretyAviationFamily = &family{
	kind: c.FamilyCrimeSuretyAviation,
	prompt: `This is a crime, bond, or aviation coverage. Put in "details": employee_theft_limit,
forgery_limit, computer_fraud_limit, bond_amount, hull_value (numbers), obligee (text), principal
(text), aircraft (array of {tail_number, make_model, seats}).`,
	contexts: map[c.CoverageType]string{
		c.Crime:        "Commercial crime covers employee theft, forgery, and computer or funds transfer fraud, each with its own limit.",
		c.FidelityBond: "A fidelity bond covers losses from dishonest acts of employees.",
		c.SuretyBond:   "A surety bond guarantees the principal's obligation to the obligee; the bond amount is the penal sum.",
		c.Aviation:     "Aviation coverage includes hull and liability for scheduled aircraft.",
	},
	terms: []string{"crime", "theft", "forgery", "bond", "surety", "obligee", "aircraft", "aviation", "hull"},
	promote: chain(
		promoteMoney("employee_theft_limit", "forgery_limit", "computer_fraud_limit", "bond_amount", "hull_value"),
		promoteText("obligee", "principal"),
		promoteList("aircraft"),
	),
}

var genericFamily = &family{
	kind: c.FamilyGeneric,
	prompt: `Extract the limits, deductible and premium shown for this coverage. Put any other
coverage-specific values in "details" using snake_case keys.`,
}

// dispatch maps each known coverage type to its family. Types not listed
// fall through to genericFamily.
var dispatch = map[c.CoverageType]*family{
	c.GeneralLiability:      generalLiabilityFamily,
	c.Umbrella:              umbrellaExcessFamily,
	c.ExcessLiability:       umbrellaExcessFamily,
	c.CommercialProperty:    commercialPropertyFamily,
	c.BusinessAuto:          businessAutoFamily,
	c.WorkersCompensation:   workersCompFamily,
	c.ProfessionalLiability: claimsMadeFamily,
	c.DirectorsOfficers:     claimsMadeFamily,
	c.EmploymentPractices:   claimsMadeFamily,
	c.CyberLiability:        claimsMadeFamily,
	c.MedicalMalpractice:    claimsMadeFamily,
	c.BusinessIncome:        propertyExtensionsFamily,
	c.BuildersRisk:          propertyExtensionsFamily,
	c.Flood:                 propertyExtensionsFamily,
	c.Earthquake:            propertyExtensionsFamily,
	c.InlandMarine:          marineEquipmentFamily,
	c.OceanMarine:           marineEquipmentFamily,
	c.EquipmentBreakdown:    marineEquipmentFamily,
	c.LiquorLiability:       specializedLiabilityFamily,
	c.PollutionLiability:    specializedLiabilityFamily,
	c.GarageLiability:       specializedLiabilityFamily,
	c.Crime:                 crimeSuretyAviationFamily,
	c.FidelityBond:          crimeSuretyAviationFamily,
	c.SuretyBond:            crimeSuretyAviationFamily,
	c.Aviation:              crimeSuretyAviationFamily,
}

func familyFor(t c.CoverageType) *family {
	if f, ok := dispatch[t]; ok {
		return f
	}
	return genericFamily
}
