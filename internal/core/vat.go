package core

import "github.com/shopspring/decimal"

// VATRate is the fixed VAT rate applied to gross amounts.
var VATRate = decimal.RequireFromString("0.21")

// TaxSplit is a gross amount broken into its VAT and net parts.
type TaxSplit struct {
	Gross decimal.Decimal
	VAT   decimal.Decimal
	Net   decimal.Decimal
}

// SplitVAT computes VAT as 21% of gross and net as gross minus VAT, both
// rounded half-up to two places. With noVAT the whole gross is net.
//
// The same split backs both persisted records and the live preview.
func SplitVAT(gross decimal.Decimal, noVAT bool) (TaxSplit, error) {
	if gross.IsNegative() {
		return TaxSplit{}, &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if gross.GreaterThan(MaxAmount) {
		return TaxSplit{}, &ValidationError{Field: "amount", Err: ErrAmountTooLarge}
	}
	gross = gross.Round(2)
	if noVAT {
		return TaxSplit{Gross: gross, VAT: decimal.Zero, Net: gross}, nil
	}
	vat := gross.Mul(VATRate).Round(2)
	return TaxSplit{Gross: gross, VAT: vat, Net: gross.Sub(vat).Round(2)}, nil
}

// ApplyVAT fills the VAT and net fields of a bill from its gross amount.
func (b *Bill) ApplyVAT() error {
	split, err := SplitVAT(b.Amount, b.NoVAT)
	if err != nil {
		return err
	}
	b.Amount, b.VAT, b.NetAmount = split.Gross, split.VAT, split.Net
	return nil
}

// ApplyVAT fills the VAT and net fields of a transaction from its gross amount.
func (t *Transaction) ApplyVAT(noVAT bool) error {
	split, err := SplitVAT(t.Amount, noVAT)
	if err != nil {
		return err
	}
	t.Amount, t.VAT, t.NetAmount = split.Gross, split.VAT, split.Net
	return nil
}
