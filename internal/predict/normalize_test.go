package predict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

const wellFormedResponse = `{"predicted_price_inr":65000,"range_inr":{"min":60000,"max":70000},"confidence":0.8,"product":"iPhone 15 Pro 256GB","category":"Smartphones","specs_extracted":{"storage":"256GB","condition":"used"},"explanation_bullets":["Popular model with strong resale demand."],"anomalies":[]}`

func TestNormalizePassesThroughWellFormedResponse(t *testing.T) {
	result := Normalize("iPhone 15 Pro 256GB used condition", wellFormedResponse, testNow)

	assert.Equal(t, SourceModel, result.EstimateSource)
	assert.Equal(t, float64(65000), result.PredictedPriceINR)
	assert.Equal(t, PriceRange{Min: 60000, Max: 70000}, result.RangeINR)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Equal(t, "iPhone 15 Pro 256GB", result.Product)
	assert.Equal(t, "Smartphones", result.Category)
	assert.Equal(t, map[string]string{"storage": "256GB", "condition": "used"}, result.SpecsExtracted)
	assert.Equal(t, []string{"Popular model with strong resale demand."}, result.ExplanationBullets)
	assert.Empty(t, result.Anomalies)
	assert.Equal(t, testNow, result.GeneratedAt)
}

func TestNormalizeStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + wellFormedResponse + "\n```"
	result := Normalize("iPhone 15 Pro 256GB used condition", fenced, testNow)

	assert.Equal(t, SourceModel, result.EstimateSource)
	assert.Equal(t, float64(65000), result.PredictedPriceINR)
}

func TestNormalizeBackfillsOptionalFields(t *testing.T) {
	minimal := `{"predicted_price_inr":5000,"range_inr":{"min":4000,"max":6000},"product":"Old Kindle"}`
	result := Normalize("Old Kindle", minimal, testNow)

	assert.Equal(t, SourceModel, result.EstimateSource)
	assert.Equal(t, 0.5, result.Confidence)
	assert.NotNil(t, result.SpecsExtracted)
	assert.NotNil(t, result.ExplanationBullets)
	assert.NotNil(t, result.Anomalies)
	assert.Equal(t, testNow, result.GeneratedAt)
}

func TestNormalizeClampsConfidence(t *testing.T) {
	raw := `{"predicted_price_inr":5000,"range_inr":{"min":4000,"max":6000},"confidence":1.5,"product":"Old Kindle"}`
	result := Normalize("Old Kindle", raw, testNow)
	assert.Equal(t, float64(1), result.Confidence)

	raw = `{"predicted_price_inr":5000,"range_inr":{"min":4000,"max":6000},"confidence":-0.2,"product":"Old Kindle"}`
	result = Normalize("Old Kindle", raw, testNow)
	assert.Equal(t, float64(0), result.Confidence)
}

func TestNormalizeFallsBackOnNonJSON(t *testing.T) {
	result := Normalize("iPhone 15 Pro 256GB used condition", "Sorry, I cannot provide an exact price.", testNow)

	assert.Equal(t, SourceFallbackSynthetic, result.EstimateSource)
	assert.Equal(t, "iPhone 15 Pro 256GB used condition", result.Product)
	assert.Equal(t, "Unknown", result.Category)
	assert.Equal(t, 0.5, result.Confidence)
	require.Len(t, result.Anomalies, 1)
	require.Len(t, result.ExplanationBullets, 1)
	assert.Empty(t, result.SpecsExtracted)

	assert.Greater(t, result.PredictedPriceINR, float64(0))
	assert.GreaterOrEqual(t, result.PredictedPriceINR, float64(5000))
	assert.LessOrEqual(t, result.PredictedPriceINR, float64(105000))
	assert.LessOrEqual(t, result.RangeINR.Min, result.PredictedPriceINR)
	assert.GreaterOrEqual(t, result.RangeINR.Max, result.PredictedPriceINR)
}

func TestNormalizeFallbackIsDeterministic(t *testing.T) {
	a := Normalize("Dell XPS 13, 16GB RAM", "no json here", testNow)
	b := Normalize("Dell XPS 13, 16GB RAM", "no json here", testNow)
	assert.Equal(t, a, b)
}

func TestNormalizeFallbackExtractsCurrencyAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"rupee symbol with commas", "I'd estimate around ₹45,000 for this.", 45000},
		{"Rs prefix", "Probably Rs. 12000 or so", 12000},
		{"INR prefix with decimals", "roughly INR 1,299.50", 1299.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize("some product", tt.raw, testNow)
			assert.Equal(t, SourceFallbackTextPrice, result.EstimateSource)
			assert.Equal(t, tt.want, result.PredictedPriceINR)
			assert.Equal(t, float64(int64(tt.want*0.9+0.5)), result.RangeINR.Min)
		})
	}
}

func TestNormalizeFallbackIgnoresWordEmbeddedMarkers(t *testing.T) {
	// The trailing "rs" of ordinary words must not read as a currency marker.
	tests := []string{
		"The item comes in several colors 500 of which are rare.",
		"top sellers 2000 units moved",
		"winrs 300",
	}

	for _, raw := range tests {
		result := Normalize("some product", raw, testNow)
		assert.Equal(t, SourceFallbackSynthetic, result.EstimateSource, raw)
	}
}

func TestNormalizeFallbackRangeRounding(t *testing.T) {
	result := Normalize("some product", "around ₹45,000", testNow)
	assert.Equal(t, PriceRange{Min: 40500, Max: 49500}, result.RangeINR)
}

func TestNormalizeFallbackProductFromFirstCommaSegment(t *testing.T) {
	result := Normalize("Samsung Galaxy S23, 128GB, mint condition", "not json", testNow)
	assert.Equal(t, "Samsung Galaxy S23", result.Product)
}

func TestNormalizeFallbackProductDefault(t *testing.T) {
	result := Normalize(",trailing segment", "not json", testNow)
	assert.Equal(t, "Unknown Product", result.Product)
}

func TestNormalizeRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing price", `{"range_inr":{"min":1,"max":2},"product":"x"}`},
		{"missing range", `{"predicted_price_inr":100,"product":"x"}`},
		{"missing product", `{"predicted_price_inr":100,"range_inr":{"min":90,"max":110}}`},
		{"zero price", `{"predicted_price_inr":0,"range_inr":{"min":90,"max":110},"product":"x"}`},
		{"negative min", `{"predicted_price_inr":100,"range_inr":{"min":-1,"max":110},"product":"x"}`},
		{"zero max", `{"predicted_price_inr":100,"range_inr":{"min":90,"max":0},"product":"x"}`},
		{"price outside range", `{"predicted_price_inr":200,"range_inr":{"min":90,"max":110},"product":"x"}`},
		{"min above max", `{"predicted_price_inr":100,"range_inr":{"min":110,"max":90},"product":"x"}`},
		{"json array", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize("some product", tt.raw, testNow)
			assert.NotEqual(t, SourceModel, result.EstimateSource)
			assert.Len(t, result.Anomalies, 1)
		})
	}
}
