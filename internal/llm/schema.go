package llm

// Schemas for the JSON objects each prompt asks for. They are deliberately
// loose: every field is optional and nullable, so a mismatch means the model
// answered with the wrong shape rather than left something out.

func nullable(typ string) map[string]any {
	return map[string]any{"type": []any{typ, "null"}}
}

func confidenceProp() map[string]any {
	return map[string]any{"type": []any{"number", "null"}, "minimum": 0.0, "maximum": 1.0}
}

// moneyProp allows a number or a numeric string like "$1,000,000".
func moneyProp() map[string]any {
	return map[string]any{"type": []any{"number", "string", "null"}}
}

// ClassificationSchema describes the classifier response.
func ClassificationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"documentType": nullable("string"),
			"coveragesDetected": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"sections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label":     map[string]any{"type": "string"},
						"pageStart": map[string]any{"type": "integer", "minimum": 1},
						"pageEnd":   map[string]any{"type": "integer", "minimum": 1},
					},
					"required": []any{"label"},
				},
			},
			"confidence": confidenceProp(),
		},
		"required": []any{"coveragesDetected"},
	}
}

// PolicySchema describes the policy-fields response.
func PolicySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"policyNumber":    nullable("string"),
			"insuredName":     nullable("string"),
			"effectiveDate":   nullable("string"),
			"expirationDate":  nullable("string"),
			"carrierName":     nullable("string"),
			"carrierNaicCode": map[string]any{"type": []any{"string", "number", "null"}},
			"totalPremium":    moneyProp(),
			"status":          nullable("string"),
			"confidence":      confidenceProp(),
		},
	}
}

// CoverageSchema describes the response shared by all coverage families.
func CoverageSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"coverageType":        nullable("string"),
			"coverageSubtype":     nullable("string"),
			"eachOccurrenceLimit": moneyProp(),
			"aggregateLimit":      moneyProp(),
			"deductible":          moneyProp(),
			"premium":             moneyProp(),
			"isOccurrenceForm":    nullable("boolean"),
			"isClaimsMade":        nullable("boolean"),
			"retroactiveDate":     nullable("string"),
			"details":             nullable("object"),
			"confidence":          confidenceProp(),
		},
	}
}
