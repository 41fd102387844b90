package predict

import (
	"encoding/json"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	fallbackConfidence = 0.5
	fallbackMinPrice   = 5000
	fallbackMaxPrice   = 105000
	fallbackProduct    = "Unknown Product"
	fallbackCategory   = "Unknown"

	fallbackAdvisory = "This is an approximate estimate. Verify against current market listings before buying or selling."
	fallbackAnomaly  = "The AI response could not be parsed; a heuristic fallback estimate was returned."
)

// currencyAmountRe matches a currency marker followed by an amount, e.g.
// "₹45,000", "Rs. 12000" or "INR 1,299.50". The textual markers are anchored
// at a word boundary so the trailing "rs" of ordinary words ("colors 500")
// doesn't read as a currency amount.
var currencyAmountRe = regexp.MustCompile(`(?i)(?:₹|\bRs\.?|\bINR)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)

// upstreamResult mirrors the JSON schema requested in the prompt. Pointer
// fields distinguish absent from zero so validation can tell the difference.
type upstreamResult struct {
	PredictedPriceINR  *float64          `json:"predicted_price_inr"`
	RangeINR           *PriceRange       `json:"range_inr"`
	Confidence         *float64          `json:"confidence"`
	Product            string            `json:"product"`
	Category           string            `json:"category"`
	SpecsExtracted     map[string]string `json:"specs_extracted"`
	ExplanationBullets []string          `json:"explanation_bullets"`
	Anomalies          []string          `json:"anomalies"`
	GeneratedAt        *time.Time        `json:"generated_at"`
}

// Normalize turns the raw upstream text into a valid Result. An upstream
// formatting failure is never propagated: anything that doesn't parse and
// validate against the expected schema resolves to a clearly-tagged fallback
// estimate.
func Normalize(specs, raw string, now time.Time) Result {
	parsed, ok := parseUpstream(raw)
	if !ok {
		return fallback(specs, raw, now)
	}

	result := Result{
		PredictedPriceINR:  *parsed.PredictedPriceINR,
		RangeINR:           *parsed.RangeINR,
		Confidence:         fallbackConfidence,
		Product:            strings.TrimSpace(parsed.Product),
		Category:           parsed.Category,
		SpecsExtracted:     parsed.SpecsExtracted,
		ExplanationBullets: parsed.ExplanationBullets,
		Anomalies:          parsed.Anomalies,
		GeneratedAt:        now,
		EstimateSource:     SourceModel,
	}
	if parsed.Confidence != nil {
		result.Confidence = clamp01(*parsed.Confidence)
	}
	if parsed.GeneratedAt != nil && !parsed.GeneratedAt.IsZero() {
		result.GeneratedAt = *parsed.GeneratedAt
	}
	if result.SpecsExtracted == nil {
		result.SpecsExtracted = map[string]string{}
	}
	if result.ExplanationBullets == nil {
		result.ExplanationBullets = []string{}
	}
	if result.Anomalies == nil {
		result.Anomalies = []string{}
	}
	return result
}

// parseUpstream strips code fences, parses the text as JSON and checks the
// required fields. A false return routes to the fallback path.
func parseUpstream(raw string) (*upstreamResult, bool) {
	text := stripCodeFences(raw)
	if text == "" {
		return nil, false
	}

	var parsed upstreamResult
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		log.Debug().Err(err).Msg("upstream response is not valid JSON")
		return nil, false
	}

	if parsed.PredictedPriceINR == nil || parsed.RangeINR == nil || strings.TrimSpace(parsed.Product) == "" {
		return nil, false
	}
	price := *parsed.PredictedPriceINR
	if price <= 0 || parsed.RangeINR.Min <= 0 || parsed.RangeINR.Max <= 0 {
		return nil, false
	}
	// The min <= price <= max invariant is part of the response contract, so a
	// range that doesn't contain the point price counts as a schema failure.
	if parsed.RangeINR.Min > price || price > parsed.RangeINR.Max {
		return nil, false
	}
	return &parsed, true
}

// fallback synthesizes a usable estimate from the raw upstream text and the
// original input. It is deterministic: identical inputs produce identical
// results apart from the timestamp.
func fallback(specs, raw string, now time.Time) Result {
	point, found := priceFromText(raw)
	source := SourceFallbackTextPrice
	if !found {
		point = syntheticPrice(specs)
		source = SourceFallbackSynthetic
	}

	product := fallbackProduct
	if segment := strings.TrimSpace(strings.SplitN(specs, ",", 2)[0]); segment != "" {
		product = segment
	}

	log.Warn().
		Str("source", string(source)).
		Float64("pointPrice", point).
		Msg("upstream output unparseable, using fallback estimate")

	return Result{
		PredictedPriceINR:  point,
		RangeINR:           PriceRange{Min: math.Round(point * 0.9), Max: math.Round(point * 1.1)},
		Confidence:         fallbackConfidence,
		Product:            product,
		Category:           fallbackCategory,
		SpecsExtracted:     map[string]string{},
		ExplanationBullets: []string{fallbackAdvisory},
		Anomalies:          []string{fallbackAnomaly},
		GeneratedAt:        now,
		EstimateSource:     source,
	}
}

// priceFromText extracts the first currency amount from the raw text.
// Amounts below one rupee are rejected so that rounding the ±10% band can
// never produce a non-positive bound.
func priceFromText(raw string) (float64, bool) {
	m := currencyAmountRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || amount < 1 {
		return 0, false
	}
	return amount, true
}

// syntheticPrice derives a point price in [fallbackMinPrice, fallbackMaxPrice]
// from the input text. Hashing instead of random generation keeps identical
// requests byte-identical, which matters for the absorbed-failure contract.
func syntheticPrice(specs string) float64 {
	h := fnv.New64a()
	h.Write([]byte(specs))
	span := uint64(fallbackMaxPrice - fallbackMinPrice + 1)
	return float64(fallbackMinPrice + h.Sum64()%span)
}

func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
