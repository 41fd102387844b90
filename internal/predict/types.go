package predict

import "time"

// Source tags how a result was produced so fallback estimates are never
// mistaken for genuine model output.
type Source string

const (
	// SourceModel means the upstream's JSON parsed and validated cleanly.
	SourceModel Source = "model"
	// SourceFallbackTextPrice means the upstream's output was unparseable but
	// contained a currency amount that was used as the point price.
	SourceFallbackTextPrice Source = "fallback-text-price"
	// SourceFallbackSynthetic means no price could be extracted at all and the
	// point price was derived from the input text.
	SourceFallbackSynthetic Source = "fallback-synthetic"
)

// Request is the inbound payload: a free-text product description.
type Request struct {
	Specs string `json:"specs"`
}

// PriceRange bounds an estimate in INR.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Result is the price estimate returned to the caller. Every Result satisfies
// PredictedPriceINR > 0, RangeINR.Min <= PredictedPriceINR <= RangeINR.Max and
// Confidence in [0,1].
type Result struct {
	PredictedPriceINR  float64           `json:"predicted_price_inr"`
	RangeINR           PriceRange        `json:"range_inr"`
	Confidence         float64           `json:"confidence"`
	Product            string            `json:"product"`
	Category           string            `json:"category"`
	SpecsExtracted     map[string]string `json:"specs_extracted"`
	ExplanationBullets []string          `json:"explanation_bullets"`
	Anomalies          []string          `json:"anomalies"`
	GeneratedAt        time.Time         `json:"generated_at"`
	EstimateSource     Source            `json:"estimate_source"`
}
