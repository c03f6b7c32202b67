package config

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

const (
	CarAvailable   = "available"
	CarRented      = "rented"
	CarMaintenance = "maintenance"
)

const (
	Pending   = "pending"
	Approved  = "approved"
	Rejected  = "rejected"
	Active    = "active"
	Completed = "completed"
	Cancelled = "cancelled"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

const (
	MethodMpesa        = "mpesa"
	MethodCard         = "card"
	MethodBankTransfer = "bank_transfer"
)

var (
	Roles           = []string{RoleCustomer, RoleAdmin}
	CarStatuses     = []string{CarAvailable, CarRented, CarMaintenance}
	BookingStatuses = []string{Pending, Approved, Rejected, Active, Completed, Cancelled}
	PaymentStatuses = []string{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded}
	PaymentMethods  = []string{MethodMpesa, MethodCard, MethodBankTransfer}

	// Bookings in these states hold the car's calendar.
	BlockingBookingStatuses = []string{Pending, Approved, Active}
)
