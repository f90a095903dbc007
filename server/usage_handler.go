package server

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const billingURL = "https://finedata.ai/billing"

func (d *Dispatcher) handleGetUsage(ctx context.Context, _ Arguments) Outcome {
	zap.S().Infow("executing get_usage")

	raw, err := d.client.GetUsage(ctx)
	if err != nil {
		return errorOutcome(err)
	}

	usage := gjson.ParseBytes(raw).Get("customer_usage")
	from := stringOr(usage.Get("from_datetime"), "N/A")
	to := stringOr(usage.Get("to_datetime"), "N/A")
	// Only the first charge carries token units.
	tokens := stringOr(usage.Get("charges_usage.0.units"), "0")

	text := fmt.Sprintf(`Current Usage

Period: %s to %s
Tokens used: %s

For detailed billing, visit %s`, from, to, tokens, billingURL)

	return textOutcome(text)
}
