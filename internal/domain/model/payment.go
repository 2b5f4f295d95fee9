package model

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentPending   PaymentStatus = "pending"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentOutcome is the result of polling a draft's pending payment.
type PaymentOutcome struct {
	Status PaymentStatus
	Draft  *Draft
}
