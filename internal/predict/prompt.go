package predict

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

const pricePredictionPrompt = `
	You are a pricing expert for the Indian secondhand market. Estimate a fair
	resale price in Indian Rupees (INR) for the product described below.

	Product description:
	%s

	Respond in JSON format with these fields:
	- predicted_price_inr: the estimated price in INR (number)
	- range_inr: object with "min" and "max" price bounds in INR (numbers)
	- confidence: confidence in the estimate between 0 and 1 (number)
	- product: a short product name
	- category: the product category
	- specs_extracted: object mapping spec names to values found in the description
	- explanation_bullets: array of short sentences explaining the estimate
	- anomalies: array of sentences flagging anything unusual or contradictory in the description (empty array if none)

	Example response:
	{"predicted_price_inr": 65000, "range_inr": {"min": 60000, "max": 70000}, "confidence": 0.8, "product": "iPhone 15 Pro 256GB", "category": "Smartphones", "specs_extracted": {"storage": "256GB", "condition": "used"}, "explanation_bullets": ["Popular model with strong resale demand."], "anomalies": []}

	Respond ONLY with the JSON object, no markdown or other text.`

// BuildPrompt renders the validated specs text into the instruction sent
// upstream. Pure function of its input.
func BuildPrompt(specs string) string {
	return sprintfDedent(pricePredictionPrompt, specs)
}

func sprintfDedent(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}
