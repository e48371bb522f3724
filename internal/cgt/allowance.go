package cgt

import "github.com/shopspring/decimal"

// Allowance is the annual exemption applied to a net position.
type Allowance struct {
	NetPosition        decimal.Decimal
	ExemptionUsed      decimal.Decimal
	ExemptionRemaining decimal.Decimal
	TaxableAmount      decimal.Decimal
}

// ApplyAllowance offsets the net realized position against annualExemption.
// A net loss uses none of the exemption.
func ApplyAllowance(c Classification, annualExemption decimal.Decimal) Allowance {
	net := c.TotalGains.Sub(c.TotalLosses)

	used := decimal.Max(decimal.Zero, decimal.Min(net, annualExemption))
	taxable := decimal.Max(decimal.Zero, net.Sub(annualExemption))

	return Allowance{
		NetPosition:        net,
		ExemptionUsed:      used,
		ExemptionRemaining: annualExemption.Sub(used),
		TaxableAmount:      taxable,
	}
}
