package models

// Currency is one of the two currencies the exchange trades.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyLBP Currency = "LBP"
)

func (c Currency) String() string {
	return string(c)
}

// Valid reports whether the currency is one the ledger knows about.
func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyLBP
}
