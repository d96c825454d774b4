package constants

const (
	// DefaultCurrency is assumed when a source does not state one.
	DefaultCurrency = "PLN"

	// UnknownNIP is written for a counterparty whose tax id could not be found.
	UnknownNIP = "BRAK"

	// DefaultBuyerName is written for a counterparty whose name could not be found.
	DefaultBuyerName = "Nabywca"

	// DefaultOfficeCode is used when the submitter gives no tax office code.
	DefaultOfficeCode = "1475"

	// PurposeFiling and PurposeCorrection are the CelZlozenia values.
	PurposeFiling     = 1
	PurposeCorrection = 2

	// SystemName is written into the filing header.
	SystemName = "PDF2JPK"
)
