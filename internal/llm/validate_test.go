package llm

import "testing"

func TestCoverageSchema(t *testing.T) {
	ok := []byte(`{"eachOccurrenceLimit": "$1,000,000", "aggregateLimit": 2000000, "isClaimsMade": null, "details": {"x": 1}, "confidence": 0.8}`)
	if err := ValidateJSONAgainstSchema("coverage", CoverageSchema(), ok); err != nil {
		t.Fatalf("valid coverage rejected: %v", err)
	}
	bad := []byte(`{"isClaimsMade": "yes", "confidence": 3}`)
	if err := ValidateJSONAgainstSchema("coverage", CoverageSchema(), bad); err == nil {
		t.Fatal("string boolean accepted")
	}
}

func TestClassificationSchemaRequiresCoverages(t *testing.T) {
	if err := ValidateJSONAgainstSchema("classification", ClassificationSchema(), []byte(`{"documentType": "policy"}`)); err == nil {
		t.Fatal("missing coveragesDetected accepted")
	}
	good := []byte(`{"documentType": "policy", "coveragesDetected": ["general_liability"], "sections": [{"label": "declarations", "pageStart": 1, "pageEnd": 2}]}`)
	if err := ValidateJSONAgainstSchema("classification", ClassificationSchema(), good); err != nil {
		t.Fatalf("valid classification rejected: %v", err)
	}
}
