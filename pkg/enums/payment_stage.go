package enums

// PaymentStage is the storefront-facing projection of where an order sits in
// checkout. It is derived on every read and never persisted.
type PaymentStage string

const (
	StageSelection    PaymentStage = "selection"
	StageConfirmation PaymentStage = "confirmation"
	StageProcessing   PaymentStage = "processing"
	StageCompleted    PaymentStage = "completed"
	StageFailed       PaymentStage = "failed"
)

// String implements fmt.Stringer.
func (p PaymentStage) String() string {
	return string(p)
}
